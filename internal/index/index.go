// Package index holds catalog embeddings and answers nearest-neighbor queries.
package index

import (
	"errors"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
)

var (
	// ErrNotBuilt is returned by queries against an index that was never built.
	ErrNotBuilt = errors.New("index not built")
	// ErrBuildInProgress is returned when a build overlaps another one.
	ErrBuildInProgress = errors.New("index build in progress")
	// ErrInvalidVector is returned for query vectors with zero norm or non-finite values.
	ErrInvalidVector = errors.New("invalid query vector")
)

// Hit is one nearest-neighbor match.
type Hit struct {
	Item  catalog.Item
	Score float64
	// Position is the item's insertion order in the catalog snapshot.
	Position int
}

// VectorIndex is a read-mostly nearest-neighbor index over one catalog snapshot.
// Implementations must be safe for concurrent queries; Build replaces the
// whole snapshot atomically.
type VectorIndex interface {
	// Build validates items and replaces the served snapshot.
	// Every item must already carry its embedding.
	Build(items []catalog.Item) error

	// Query returns the k items most similar to vector, score descending,
	// ties in catalog insertion order. k larger than Size returns all items.
	Query(vector []float32, k int) ([]Hit, error)

	// Size returns the number of items in the served snapshot (0 if unbuilt).
	Size() int

	// Dimensions returns the embedding dimensionality (0 if unbuilt).
	Dimensions() int

	// Lookup finds an item by ID.
	Lookup(id string) (catalog.Item, bool)

	// LookupURL finds an item by catalog URL.
	LookupURL(url string) (catalog.Item, bool)

	// Items returns the snapshot in insertion order.
	Items() []catalog.Item
}
