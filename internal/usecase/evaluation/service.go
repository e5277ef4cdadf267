package evaluation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/recdex/internal/domain"
	domeval "github.com/kailas-cloud/recdex/internal/domain/evaluation"
	"github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/metrics"
)

// DefaultKValues are evaluated when the caller passes none.
var DefaultKValues = []int{5, 10}

// DefaultConcurrency bounds in-flight recommendations per evaluation run.
const DefaultConcurrency = 4

// Service scores recommendation quality against labeled queries.
type Service struct {
	rec         Recommender
	resolver    Resolver
	concurrency int
	logger      *zap.Logger
}

// New creates an evaluation service.
func New(rec Recommender, resolver Resolver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{rec: rec, resolver: resolver, concurrency: DefaultConcurrency, logger: log}
}

// WithConcurrency configures how many queries run at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// slot holds the outcome for one labeled query, indexed by input position.
type slot struct {
	id     string
	truth  []string
	record *domeval.Record
	skip   string
}

// Evaluate runs every labeled query and aggregates Recall@K per k.
// Malformed records are skipped and reported; embedding failures and
// cancellation abort the run.
func (s *Service) Evaluate(ctx context.Context, labeled []domeval.LabeledQuery, kValues []int) (domeval.Report, error) {
	ks, err := NormalizeK(kValues)
	if err != nil {
		return domeval.Report{}, err
	}
	limit := ks[len(ks)-1]
	runID := uuid.NewString()
	log := logger.FromContextOr(ctx, s.logger).With(zap.String("run_id", runID))

	if c, ok := s.rec.(LimitClamper); ok {
		if served := c.ClampLimit(limit); served < limit {
			log.Warn("k exceeds the recommendation limit, recall is computed over fewer predictions",
				zap.Int("max_k", limit),
				zap.Int("max_predictions", served),
			)
		}
	}

	slots := make([]slot, len(labeled))
	for i := range labeled {
		slots[i] = s.prepare(i, &labeled[i])
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range slots {
		if slots[i].skip != "" {
			continue
		}
		g.Go(func() error {
			return s.run(gctx, &slots[i], labeled[i], ks, limit)
		})
	}
	if err = g.Wait(); err != nil {
		log.Error("evaluation aborted", zap.Error(err))
		return domeval.Report{}, fmt.Errorf("evaluate: %w", err)
	}

	report := aggregate(runID, ks, slots)
	for _, sk := range report.Skipped {
		log.Warn("labeled query skipped",
			zap.Error(domain.NewEvaluationDataError(sk.QueryID, sk.Reason)))
	}
	publish(&report)

	fields := []zap.Field{zap.Int("evaluated", report.Evaluated), zap.Int("skipped", len(report.Skipped))}
	for _, k := range ks {
		fields = append(fields, zap.Float64("mean_recall@"+strconv.Itoa(k), report.PerK[k].Mean))
	}
	log.Info("evaluation finished", fields...)
	return report, nil
}

// prepare validates a labeled query and resolves its ground truth to item IDs.
func (s *Service) prepare(i int, lq *domeval.LabeledQuery) slot {
	sl := slot{id: lq.ID}
	if sl.id == "" {
		sl.id = "q" + strconv.Itoa(i+1)
	}
	if err := lq.Query.Validate(); err != nil {
		sl.skip = "invalid query: " + err.Error()
		return sl
	}
	if len(lq.GroundTruth) == 0 {
		sl.skip = "empty ground truth"
		return sl
	}

	seen := make(map[string]struct{}, len(lq.GroundTruth))
	for _, entry := range lq.GroundTruth {
		id, ok := s.resolve(entry)
		if !ok {
			sl.skip = fmt.Sprintf("unresolvable ground truth entry %q", entry)
			return sl
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			sl.truth = append(sl.truth, id)
		}
	}
	return sl
}

func (s *Service) resolve(entry string) (string, bool) {
	if it, ok := s.resolver.Lookup(entry); ok {
		return it.ID(), true
	}
	if it, ok := s.resolver.LookupURL(entry); ok {
		return it.ID(), true
	}
	return "", false
}

func (s *Service) run(ctx context.Context, sl *slot, lq domeval.LabeledQuery, ks []int, limit int) error {
	set, err := s.rec.Recommend(ctx, lq.Query, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			sl.skip = "invalid query: " + err.Error()
			return nil
		}
		return fmt.Errorf("query %s: %w", sl.id, err)
	}
	set.QueryID = sl.id

	predicted := set.ItemIDs()
	rec := &domeval.Record{
		QueryID:     sl.id,
		GroundTruth: sl.truth,
		Predicted:   set,
		RecallAtK:   make(map[int]float64, len(ks)),
	}
	for _, k := range ks {
		r, err := RecallAtK(predicted, sl.truth, k)
		if err != nil {
			sl.skip = err.Error()
			return nil
		}
		rec.RecallAtK[k] = r
	}
	sl.record = rec
	return nil
}

// aggregate walks slots in input order so sums are reproducible.
func aggregate(runID string, ks []int, slots []slot) domeval.Report {
	report := domeval.Report{
		RunID:   runID,
		KValues: ks,
		Skipped: []domeval.Skip{},
		PerK:    make(map[int]domeval.Stats, len(ks)),
		Records: make([]domeval.Record, 0, len(slots)),
	}
	for i := range slots {
		switch {
		case slots[i].skip != "":
			report.Skipped = append(report.Skipped, domeval.Skip{QueryID: slots[i].id, Reason: slots[i].skip})
		case slots[i].record != nil:
			report.Records = append(report.Records, *slots[i].record)
		}
	}
	report.Evaluated = len(report.Records)

	for _, k := range ks {
		values := make([]float64, len(report.Records))
		for i := range report.Records {
			values[i] = report.Records[i].RecallAtK[k]
		}
		report.PerK[k] = domeval.Summarize(values)
	}
	return report
}

func publish(report *domeval.Report) {
	metrics.EvaluationSkippedTotal.Add(float64(len(report.Skipped)))
	if report.Evaluated == 0 {
		return
	}
	for _, k := range report.KValues {
		metrics.EvaluationRecall.WithLabelValues(strconv.Itoa(k)).Set(report.PerK[k].Mean)
	}
}

// NormalizeK validates, deduplicates and sorts k values; empty input yields
// DefaultKValues.
func NormalizeK(kValues []int) ([]int, error) {
	if len(kValues) == 0 {
		return slices.Clone(DefaultKValues), nil
	}
	out := make([]int, 0, len(kValues))
	for _, k := range kValues {
		if k <= 0 {
			return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrEvaluationData, k)
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
