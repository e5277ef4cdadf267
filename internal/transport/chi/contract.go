package chi

import (
	"context"

	domeval "github.com/kailas-cloud/recdex/internal/domain/evaluation"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	healthuc "github.com/kailas-cloud/recdex/internal/usecase/health"
	"github.com/kailas-cloud/recdex/internal/usecase/indexer"
	"github.com/kailas-cloud/recdex/internal/usecase/recommend"
)

// Recommender serves recommendation sets and catalog stats.
type Recommender interface {
	Recommend(ctx context.Context, q query.Query, limit int) (recommendation.Set, error)
	Stats() recommend.Stats
}

// Evaluator scores the recommender against labeled queries.
type Evaluator interface {
	Evaluate(ctx context.Context, labeled []domeval.LabeledQuery, kValues []int) (domeval.Report, error)
}

// Rebuilder reloads the catalog and swaps the index snapshot.
type Rebuilder interface {
	Rebuild(ctx context.Context) (indexer.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
