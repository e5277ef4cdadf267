package evaluation

import (
	"context"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
)

// Recommender produces the prediction for one labeled query.
type Recommender interface {
	Recommend(ctx context.Context, q query.Query, limit int) (recommendation.Set, error)
}

// LimitClamper is implemented by recommenders that cap the result size.
type LimitClamper interface {
	ClampLimit(limit int) int
}

// Resolver maps ground-truth entries onto catalog items.
type Resolver interface {
	Lookup(id string) (catalog.Item, bool)
	LookupURL(url string) (catalog.Item, bool)
}
