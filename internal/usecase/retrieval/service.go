package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	"github.com/kailas-cloud/recdex/internal/index"
)

// Config holds retrieval limits and the display threshold.
type Config struct {
	MinResults          int
	MaxResults          int
	DefaultResults      int
	SimilarityThreshold float64
}

// DefaultConfig returns the reference limits: 5 to 10 results, 5 by default.
func DefaultConfig() Config {
	return Config{
		MinResults:          5,
		MaxResults:          10,
		DefaultResults:      5,
		SimilarityThreshold: 0.5,
	}
}

// Retrieved is a canonical query with its similarity-ranked candidates.
type Retrieved struct {
	Query   query.Canonical
	Results []recommendation.Result
}

// Service encodes queries and asks the index for the nearest items.
type Service struct {
	canon Canonicalizer
	embed Embedder
	index Index
	cfg   Config
}

// New creates a retrieval service. Zero limits fall back to DefaultConfig.
func New(canon Canonicalizer, embed Embedder, idx Index, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.MinResults <= 0 {
		cfg.MinResults = def.MinResults
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.MaxResults < cfg.MinResults {
		cfg.MaxResults = cfg.MinResults
	}
	if cfg.DefaultResults <= 0 {
		cfg.DefaultResults = cfg.MinResults
	}
	cfg.DefaultResults = min(max(cfg.DefaultResults, cfg.MinResults), cfg.MaxResults)
	return &Service{canon: canon, embed: embed, index: idx, cfg: cfg}
}

// ClampLimit maps a requested limit into [MinResults, MaxResults].
// Non-positive limits use DefaultResults.
func (s *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultResults
	}
	return min(max(limit, s.cfg.MinResults), s.cfg.MaxResults)
}

// Retrieve returns up to the clamped limit of most similar items.
func (s *Service) Retrieve(ctx context.Context, q query.Query, limit int) (Retrieved, error) {
	return s.Candidates(ctx, q, s.ClampLimit(limit))
}

// Candidates runs the retrieval pipeline with an explicit pool size and no clamping.
func (s *Service) Candidates(ctx context.Context, q query.Query, pool int) (Retrieved, error) {
	c, err := s.canon.Canonicalize(q)
	if err != nil {
		return Retrieved{}, err
	}
	results, err := s.search(ctx, c.Text, pool)
	if err != nil {
		return Retrieved{}, err
	}
	return Retrieved{Query: c, Results: results}, nil
}

func (s *Service) search(ctx context.Context, text string, pool int) ([]recommendation.Result, error) {
	if s.index.Size() == 0 || pool <= 0 {
		return []recommendation.Result{}, nil
	}

	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, domain.NewEmbeddingError(fmt.Errorf("vectorize query: %w", err))
	}
	if err = validateVector(emb.Embedding, s.index.Dimensions()); err != nil {
		return nil, domain.NewEmbeddingError(err)
	}

	hits, err := s.index.Query(emb.Embedding, pool)
	if err != nil {
		switch {
		case errors.Is(err, index.ErrNotBuilt):
			return []recommendation.Result{}, nil
		case errors.Is(err, domain.ErrVectorDimMismatch), errors.Is(err, index.ErrInvalidVector):
			// A rebuild swapped the snapshot after validateVector ran.
			return nil, domain.NewEmbeddingError(fmt.Errorf("query index: %w", err))
		}
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]recommendation.Result, len(hits))
	for i, h := range hits {
		results[i] = recommendation.Result{
			Item:      h.Item,
			Score:     h.Score,
			Rank:      i + 1,
			Relevance: recommendation.RelevanceFor(h.Score, s.cfg.SimilarityThreshold),
		}
	}
	return results, nil
}

func validateVector(v []float32, dims int) error {
	if len(v) != dims {
		return fmt.Errorf("%w: provider returned %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(v), dims)
	}
	zero := true
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("provider returned non-finite vector")
		}
		if x != 0 {
			zero = false
		}
	}
	if zero {
		return fmt.Errorf("provider returned zero vector")
	}
	return nil
}
