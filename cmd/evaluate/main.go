// Command evaluate scores the recommender against a labeled query file and
// writes a Recall@K report plus a predictions CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex"
	"github.com/kailas-cloud/recdex/internal/config"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
	logpkg "github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/repository/labeled"
)

type flags struct {
	env         string
	labeledPath string
	kValues     string
	reportPath  string
	predictPath string
	timeout     time.Duration
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.StringVar(&f.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	fs.StringVar(&f.labeledPath, "labeled", "", "labeled queries file (.csv or .json)")
	fs.StringVar(&f.kValues, "k", "5,10", "comma-separated cutoffs for Recall@K")
	fs.StringVar(&f.reportPath, "report", "-", "report output path, - for stdout")
	fs.StringVar(&f.predictPath, "predictions", "", "optional predictions CSV output path")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Minute, "overall deadline")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	if f.labeledPath == "" {
		return flags{}, fmt.Errorf("-labeled is required")
	}
	return f, nil
}

func parseK(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid k %q: %w", part, err)
		}
		out = append(out, k)
	}
	return out, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(f.env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logger, err := logpkg.NewLogger(f.env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := run(ctx, f, &cfg, logger); err != nil {
		logger.Error("Evaluation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, cfg *config.Config, logger *zap.Logger) error {
	ks, err := parseK(f.kValues)
	if err != nil {
		return err
	}

	queries, err := labeled.LoadFile(ctx, f.labeledPath)
	if err != nil {
		return err
	}
	lqs := make([]recdex.LabeledQuery, len(queries))
	for i, q := range queries {
		lqs[i] = recdex.LabeledQuery{ID: q.ID, Query: q.Query.Text(), GroundTruth: q.GroundTruth}
	}

	client, err := recdex.New(clientOptions(cfg, logger)...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	built, err := client.Rebuild(ctx)
	if err != nil {
		return err
	}
	logger.Info("Catalog ready", zap.Int("items", built.Items), zap.Int("dimensions", built.Dimensions))

	report, err := client.Evaluate(ctx, lqs, ks...)
	if err != nil {
		return err
	}

	if err := writeTo(f.reportPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summarize(&report))
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if f.predictPath != "" {
		sets := make([]recdex.RecommendationSet, len(report.Records))
		for i := range report.Records {
			sets[i] = report.Records[i].Predicted
		}
		rows := recdex.ToRows(sets...)
		out := make([]recommendation.Row, len(rows))
		for i, r := range rows {
			out[i] = recommendation.Row{Query: r.Query, URL: r.URL}
		}
		if err := writeTo(f.predictPath, func(w io.Writer) error {
			return labeled.WritePredictions(w, out)
		}); err != nil {
			return fmt.Errorf("write predictions: %w", err)
		}
		logger.Info("Predictions written", zap.String("path", f.predictPath), zap.Int("rows", len(out)))
	}
	return nil
}

func clientOptions(cfg *config.Config, logger *zap.Logger) []recdex.Option {
	ec := cfg.Embedding
	opts := []recdex.Option{
		recdex.WithLogger(logger),
		recdex.WithOpenAI(ec.APIKey, ec.BaseURL, ec.Model),
		recdex.WithDimensions(ec.Dimensions),
		recdex.WithInstructions(ec.DocumentInstruction, ec.QueryInstruction),
		recdex.WithRateLimit(ec.RateLimit.RPS, ec.RateLimit.Burst),
		recdex.WithEmbedBatchSize(ec.BatchSize),
		recdex.WithCatalogFile(cfg.Catalog.Path),
		recdex.WithLimits(cfg.Retrieval.MinResults, cfg.Retrieval.MaxResults, cfg.Retrieval.DefaultResults),
		recdex.WithSimilarityThreshold(cfg.Retrieval.SimilarityThreshold),
		recdex.WithCandidatePoolFactor(cfg.Retrieval.CandidatePoolFactor),
		recdex.WithTechnicalShare(cfg.Balance.TechnicalShare),
		recdex.WithKeywords(cfg.Canonical.TechnicalKeywords, cfg.Canonical.SoftSkillKeywords),
		recdex.WithEvaluationConcurrency(cfg.Evaluation.Concurrency),
	}
	if b := ec.Breaker; b.Enabled {
		opts = append(opts, recdex.WithBreaker(recdex.BreakerSettings{
			MinRequests:  b.MinRequests,
			FailureRatio: b.FailureRatio,
			Interval:     time.Duration(b.IntervalSec) * time.Second,
			Timeout:      time.Duration(b.TimeoutSec) * time.Second,
		}))
	}
	if cfg.Cache.Enabled && len(cfg.Cache.Addrs) > 0 {
		opts = append(opts, recdex.WithRedisCache(cfg.Cache.Addrs[0], cfg.Cache.Password, cfg.Cache.TTL()))
	}
	return opts
}

type kSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type recordSummary struct {
	QueryID   string             `json:"query_id"`
	Recall    map[string]float64 `json:"recall"`
	Predicted []string           `json:"predicted"`
}

type reportSummary struct {
	RunID     string              `json:"run_id"`
	Evaluated int                 `json:"evaluated"`
	Skipped   []recdex.Skip       `json:"skipped"`
	Recall    map[string]kSummary `json:"recall"`
	Records   []recordSummary     `json:"records"`
}

func summarize(r *recdex.Report) reportSummary {
	out := reportSummary{
		RunID:     r.RunID,
		Evaluated: r.Evaluated,
		Skipped:   r.Skipped,
		Recall:    make(map[string]kSummary, len(r.PerK)),
		Records:   make([]recordSummary, len(r.Records)),
	}
	for k, s := range r.PerK {
		out.Recall["recall@"+strconv.Itoa(k)] = kSummary(s)
	}
	for i := range r.Records {
		rec := &r.Records[i]
		recall := make(map[string]float64, len(rec.RecallAtK))
		for k, v := range rec.RecallAtK {
			recall["recall@"+strconv.Itoa(k)] = v
		}
		out.Records[i] = recordSummary{QueryID: rec.QueryID, Recall: recall, Predicted: rec.Predicted.URLs()}
	}
	return out
}

func writeTo(path string, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(os.Stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
