package balance

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	"github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/metrics"
)

// DefaultTechnicalShare splits mixed sets evenly.
const DefaultTechnicalShare = 0.5

// Outcome is a balanced, presentation-ordered result list.
type Outcome struct {
	Results []recommendation.Result
	// Balanced is set when the category mix was enforced.
	Balanced bool
	// Degraded is set when a pool ran short and the target mix was not met.
	Degraded bool
}

// Scorer selects a category-balanced subset from relevance-ranked candidates.
type Scorer struct {
	technicalShare float64
	logger         *zap.Logger
}

// New creates a scorer. technicalShare is the Knowledge & Skills share of a
// mixed set and must lie in (0, 1).
func New(technicalShare float64, log *zap.Logger) (*Scorer, error) {
	if technicalShare <= 0 || technicalShare >= 1 {
		return nil, fmt.Errorf("technical share must be in (0, 1), got %v", technicalShare)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{technicalShare: technicalShare, logger: log}, nil
}

// Targets returns the per-category counts for a mixed set of size limit.
// The majority category gets floor(limit*share); the minority gets the rest.
// An even split counts Knowledge & Skills as the majority.
func (s *Scorer) Targets(limit int) (knowledge, personality int) {
	if limit <= 0 {
		return 0, 0
	}
	if s.technicalShare >= 0.5 {
		knowledge = floorShare(limit, s.technicalShare)
		return knowledge, limit - knowledge
	}
	personality = floorShare(limit, 1-s.technicalShare)
	return limit - personality, personality
}

// floorShare floors limit*share, tolerating products that land just below an integer.
func floorShare(limit int, share float64) int {
	return int(math.Floor(float64(limit)*share + 1e-9))
}

// Balance picks up to limit candidates. Mixed intent enforces the target
// category mix, filling any shortfall from the other category; other intents
// keep relevance order. Pool exhaustion is logged, never returned.
func (s *Scorer) Balance(
	ctx context.Context, candidates []recommendation.Result, intent query.Intent, limit int,
) Outcome {
	candidates = dedupe(candidates)
	if limit <= 0 || len(candidates) == 0 {
		return Outcome{Results: []recommendation.Result{}}
	}

	if !intent.Mixed() {
		metrics.BalanceTotal.WithLabelValues("skipped").Inc()
		return Outcome{Results: truncate(candidates, limit)}
	}

	var know, pers []int
	for i := range candidates {
		if candidates[i].Item.Category() == catalog.PersonalityBehavior {
			pers = append(pers, i)
		} else {
			know = append(know, i)
		}
	}

	wantK, wantP := s.Targets(limit)
	nk, np := min(wantK, len(know)), min(wantP, len(pers))

	// Fill shortfall from whichever pool still has candidates.
	rem := limit - nk - np
	if extra := min(rem, len(pers)-np); extra > 0 {
		np += extra
		rem -= extra
	}
	if extra := min(rem, len(know)-nk); extra > 0 {
		nk += extra
	}

	selected := make([]bool, len(candidates))
	for _, i := range know[:nk] {
		selected[i] = true
	}
	for _, i := range pers[:np] {
		selected[i] = true
	}

	out := make([]recommendation.Result, 0, nk+np)
	for i := range candidates {
		if selected[i] {
			out = append(out, candidates[i])
		}
	}
	recommendation.Rerank(out)

	degraded := nk != wantK || np != wantP
	if degraded {
		metrics.BalanceTotal.WithLabelValues("degraded").Inc()
		logger.FromContextOr(ctx, s.logger).Warn("category balance degraded",
			zap.Error(domain.ErrBalanceInfeasible),
			zap.Int("limit", limit),
			zap.Int("knowledge_target", wantK),
			zap.Int("personality_target", wantP),
			zap.Int("knowledge_selected", nk),
			zap.Int("personality_selected", np),
		)
	} else {
		metrics.BalanceTotal.WithLabelValues("balanced").Inc()
	}

	return Outcome{Results: out, Balanced: true, Degraded: degraded}
}

func truncate(candidates []recommendation.Result, limit int) []recommendation.Result {
	n := min(limit, len(candidates))
	out := make([]recommendation.Result, n)
	copy(out, candidates[:n])
	recommendation.Rerank(out)
	return out
}

// dedupe drops repeated item IDs, keeping the first (best ranked) occurrence.
func dedupe(candidates []recommendation.Result) []recommendation.Result {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]recommendation.Result, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.Item.ID()]; dup {
			continue
		}
		seen[c.Item.ID()] = struct{}{}
		out = append(out, c)
	}
	return out
}
