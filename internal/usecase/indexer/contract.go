package indexer

import (
	"context"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
)

// Source provides a catalog snapshot.
type Source interface {
	Load(ctx context.Context) ([]catalog.Item, error)
}

// Index is the consumer interface for the vector index (ISP).
type Index interface {
	Build(items []catalog.Item) error
	Size() int
	Dimensions() int
}
