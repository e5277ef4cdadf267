package recommend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	"github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/metrics"
)

// DefaultCandidatePoolFactor is how many candidates per slot the balancer sees.
const DefaultCandidatePoolFactor = 3

// Stats summarizes the served catalog.
type Stats struct {
	Total       int
	PerCategory map[catalog.Category]int
	Dimensions  int
}

// Service turns a query into a ranked, category-balanced recommendation set.
type Service struct {
	retriever  Retriever
	balancer   Balancer
	explainer  Explainer
	catalog    Catalog
	poolFactor int
	logger     *zap.Logger
}

// New creates a recommendation service without explanations.
func New(retriever Retriever, balancer Balancer, cat Catalog, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		retriever:  retriever,
		balancer:   balancer,
		catalog:    cat,
		poolFactor: DefaultCandidatePoolFactor,
		logger:     log,
	}
}

// WithExplainer enables per-item explanations. A nil explainer disables them.
func (s *Service) WithExplainer(e Explainer) *Service {
	s.explainer = e
	return s
}

// WithoutExplainer returns a copy that never calls the explainer. Offline
// evaluation uses it so predictions are retrieval plus balance only.
func (s *Service) WithoutExplainer() *Service {
	c := *s
	c.explainer = nil
	return &c
}

// WithCandidatePoolFactor configures the candidate pool multiplier.
func (s *Service) WithCandidatePoolFactor(f int) *Service {
	if f > 0 {
		s.poolFactor = f
	}
	return s
}

// ClampLimit reports the set size Recommend serves for limit.
func (s *Service) ClampLimit(limit int) int {
	return s.retriever.ClampLimit(limit)
}

// Recommend returns at most the clamped limit of items for q.
func (s *Service) Recommend(ctx context.Context, q query.Query, limit int) (recommendation.Set, error) {
	set, err := s.recommend(ctx, q, limit)
	switch {
	case err != nil:
		metrics.RecommendationsTotal.WithLabelValues("error").Inc()
	case set.Len() == 0:
		metrics.RecommendationsTotal.WithLabelValues("empty").Inc()
	default:
		metrics.RecommendationsTotal.WithLabelValues("ok").Inc()
	}
	if err == nil {
		metrics.RecommendationResults.Observe(float64(set.Len()))
	}
	return set, err
}

func (s *Service) recommend(ctx context.Context, q query.Query, limit int) (recommendation.Set, error) {
	limit = s.retriever.ClampLimit(limit)

	retrieved, err := s.retriever.Candidates(ctx, q, limit*s.poolFactor)
	if err != nil {
		return recommendation.Set{}, fmt.Errorf("retrieve: %w", err)
	}

	outcome := s.balancer.Balance(ctx, retrieved.Results, retrieved.Query.Intent, limit)
	set := recommendation.Set{
		Query:    retrieved.Query,
		Results:  outcome.Results,
		Balanced: outcome.Balanced,
		Degraded: outcome.Degraded,
	}

	if s.explainer != nil && set.Len() > 0 {
		s.explain(ctx, &set)
	}
	return set, nil
}

// explain attaches explanations. Failures leave explanations empty.
func (s *Service) explain(ctx context.Context, set *recommendation.Set) {
	log := logger.FromContextOr(ctx, s.logger)

	texts, err := s.explainer.Explain(ctx, set.Query, set.Results)
	if err == nil && len(texts) != len(set.Results) {
		err = fmt.Errorf("explainer returned %d explanations for %d items", len(texts), len(set.Results))
	}
	if err != nil {
		metrics.ExplanationErrorsTotal.Inc()
		log.Warn("explanations unavailable", zap.Error(err))
		return
	}
	for i := range set.Results {
		set.Results[i].Explanation = texts[i]
	}
}

// Stats reports the served catalog size, category split and dimensionality.
func (s *Service) Stats() Stats {
	items := s.catalog.Items()
	st := Stats{
		Total:       len(items),
		PerCategory: make(map[catalog.Category]int, len(catalog.Categories)),
		Dimensions:  s.catalog.Dimensions(),
	}
	for _, c := range catalog.Categories {
		st.PerCategory[c] = 0
	}
	for i := range items {
		st.PerCategory[items[i].Category()]++
	}
	return st
}

// ToRows flattens sets into (query, item URL) rows in rank order.
func ToRows(sets ...recommendation.Set) []recommendation.Row {
	return recommendation.ToRows(sets...)
}
