package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/index"
	"github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/metrics"
)

// DefaultBatchSize is the number of documents embedded per call.
const DefaultBatchSize = 64

// Result summarizes a successful rebuild.
type Result struct {
	Items       int
	Dimensions  int
	TotalTokens int
	Duration    time.Duration
}

// Service builds the vector index from a catalog source. The served snapshot
// is only replaced once every item is embedded and validated.
type Service struct {
	source    Source
	embedder  domain.Embedder
	index     Index
	batchSize int
	running   atomic.Bool
	logger    *zap.Logger
}

// New creates an indexer. embedder must produce document-side vectors.
func New(src Source, emb domain.Embedder, idx Index, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{source: src, embedder: emb, index: idx, batchSize: DefaultBatchSize, logger: log}
}

// WithBatchSize configures how many documents are embedded per call.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Rebuild loads the catalog, embeds every item and swaps the index snapshot.
// A failed rebuild leaves the previous snapshot in service. Overlapping
// rebuilds fail fast with index.ErrBuildInProgress.
func (s *Service) Rebuild(ctx context.Context) (Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.IndexBuildsTotal.WithLabelValues("conflict").Inc()
		return Result{}, index.ErrBuildInProgress
	}
	defer s.running.Store(false)

	log := logger.FromContextOr(ctx, s.logger)
	start := time.Now()

	res, err := s.rebuild(ctx, log)
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues("error").Inc()
		log.Error("Index rebuild failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return Result{}, err
	}

	res.Duration = time.Since(start)
	metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	metrics.IndexItems.Set(float64(res.Items))
	log.Info("Index rebuilt",
		zap.Int("items", res.Items),
		zap.Int("dimensions", res.Dimensions),
		zap.Int("total_tokens", res.TotalTokens),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (s *Service) rebuild(ctx context.Context, log *zap.Logger) (Result, error) {
	items, err := s.source.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load catalog: %w", err)
	}
	if len(items) == 0 {
		return Result{}, domain.NewConfigurationError("", "catalog is empty")
	}
	if err := precheck(items); err != nil {
		return Result{}, err
	}

	embedded, tokens, err := s.embedAll(ctx, items, log)
	if err != nil {
		return Result{}, err
	}

	if err := s.index.Build(embedded); err != nil {
		return Result{}, fmt.Errorf("build index: %w", err)
	}
	return Result{Items: s.index.Size(), Dimensions: s.index.Dimensions(), TotalTokens: tokens}, nil
}

func (s *Service) embedAll(ctx context.Context, items []catalog.Item, log *zap.Logger) ([]catalog.Item, int, error) {
	out := make([]catalog.Item, len(items))
	tokens := 0

	for offset := 0; offset < len(items); offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, 0, fmt.Errorf("embed catalog: %w", err)
		}
		end := min(offset+s.batchSize, len(items))

		texts := make([]string, end-offset)
		for i := range texts {
			texts[i] = items[offset+i].DocumentText()
		}

		res, err := domain.BatchEmbed(ctx, s.embedder, texts)
		if err != nil {
			return nil, 0, domain.NewEmbeddingError(fmt.Errorf("embed catalog items %d-%d: %w", offset, end-1, err))
		}
		if len(res.Embeddings) != len(texts) {
			return nil, 0, domain.NewEmbeddingError(fmt.Errorf("embed catalog items %d-%d: %w: got %d vectors",
				offset, end-1, domain.ErrEmbeddingProviderError, len(res.Embeddings)))
		}

		for i, vec := range res.Embeddings {
			out[offset+i] = items[offset+i].WithEmbedding(vec)
		}
		tokens += res.TotalTokens
		log.Debug("Catalog batch embedded", zap.Int("done", end), zap.Int("total", len(items)))
	}
	return out, tokens, nil
}

// precheck rejects catalogs the index would refuse, before paying for embeddings.
func precheck(items []catalog.Item) error {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		it := &items[i]
		if strings.TrimSpace(it.Description()) == "" {
			return domain.NewConfigurationError(it.ID(), "item has no usable description")
		}
		if _, dup := seen[it.ID()]; dup {
			return domain.NewConfigurationError(it.ID(), "duplicate item ID")
		}
		seen[it.ID()] = struct{}{}
	}
	return nil
}
