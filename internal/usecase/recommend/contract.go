package recommend

import (
	"context"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	"github.com/kailas-cloud/recdex/internal/usecase/balance"
	"github.com/kailas-cloud/recdex/internal/usecase/retrieval"
)

// Retriever produces similarity-ranked candidates.
type Retriever interface {
	ClampLimit(limit int) int
	Candidates(ctx context.Context, q query.Query, pool int) (retrieval.Retrieved, error)
}

// Balancer enforces the category mix on ranked candidates.
type Balancer interface {
	Balance(ctx context.Context, candidates []recommendation.Result, intent query.Intent, limit int) balance.Outcome
}

// Explainer writes one explanation per recommended item. Optional.
type Explainer interface {
	Explain(ctx context.Context, q query.Canonical, results []recommendation.Result) ([]string, error)
}

// Catalog exposes the served snapshot for stats.
type Catalog interface {
	Items() []catalog.Item
	Dimensions() int
}
