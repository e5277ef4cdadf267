package retrieval

import (
	"context"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/index"
)

// Canonicalizer turns a query into its canonical form.
type Canonicalizer interface {
	Canonicalize(q query.Query) (query.Canonical, error)
}

// Embedder vectorizes the canonical query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index answers nearest-neighbor queries over the catalog snapshot.
type Index interface {
	Query(vector []float32, k int) ([]index.Hit, error)
	Size() int
	Dimensions() int
}
