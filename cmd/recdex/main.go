package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recdex/internal/config"
	dbRedis "github.com/kailas-cloud/recdex/internal/db/redis"
	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/index"
	logpkg "github.com/kailas-cloud/recdex/internal/logger"
	"github.com/kailas-cloud/recdex/internal/metrics"
	catalogrepo "github.com/kailas-cloud/recdex/internal/repository/catalog"
	"github.com/kailas-cloud/recdex/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/recdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/recdex/internal/transport/openai"
	"github.com/kailas-cloud/recdex/internal/usecase/balance"
	"github.com/kailas-cloud/recdex/internal/usecase/canonical"
	embeddinguc "github.com/kailas-cloud/recdex/internal/usecase/embedding"
	evaluationuc "github.com/kailas-cloud/recdex/internal/usecase/evaluation"
	healthuc "github.com/kailas-cloud/recdex/internal/usecase/health"
	"github.com/kailas-cloud/recdex/internal/usecase/indexer"
	"github.com/kailas-cloud/recdex/internal/usecase/recommend"
	"github.com/kailas-cloud/recdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/recdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting recdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog", cfg.Catalog.Path),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Bool("explainer", cfg.Explainer.Enabled),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRecommendMetrics()

	ctx := context.Background()

	// Optional Redis embedding cache
	var store *dbRedis.Store
	if cfg.Cache.Enabled {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Build embedder chains: documents and queries use separate instructions and cache namespaces.
	docEmbedder := buildEmbedder(&cfg, cfg.Embedding.DocumentInstruction, "doc", store, logger)
	queryEmbedder := buildEmbedder(&cfg, cfg.Embedding.QueryInstruction, "query", store, logger)

	idx := index.NewFlat()
	source := catalogrepo.NewFileSource(cfg.Catalog.Path, logger)
	indexerSvc := indexer.New(source, docEmbedder, idx, logger).WithBatchSize(cfg.Embedding.BatchSize)

	canonSvc := canonical.New(canonical.NewKeywordClassifier(
		cfg.Canonical.TechnicalKeywords, cfg.Canonical.SoftSkillKeywords,
	))
	retrievalSvc := retrieval.New(canonSvc, queryEmbedder, idx, retrieval.Config{
		MinResults:          cfg.Retrieval.MinResults,
		MaxResults:          cfg.Retrieval.MaxResults,
		DefaultResults:      cfg.Retrieval.DefaultResults,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
	})
	scorer, err := balance.New(cfg.Balance.TechnicalShare, logger)
	if err != nil {
		logger.Fatal("Invalid balance configuration", zap.Error(err))
	}

	recommendSvc := recommend.New(retrievalSvc, scorer, idx, logger).
		WithCandidatePoolFactor(cfg.Retrieval.CandidatePoolFactor)
	if cfg.Explainer.Enabled {
		recommendSvc = recommendSvc.WithExplainer(openaiTransport.NewExplainer(&openaiTransport.ExplainerConfig{
			APIKey:       cfg.Explainer.APIKey,
			BaseURL:      cfg.Explainer.BaseURL,
			Model:        cfg.Explainer.Model,
			SystemPrompt: cfg.Explainer.SystemPrompt,
			Temperature:  cfg.Explainer.Temperature,
			MaxTokens:    cfg.Explainer.MaxTokens,
			Timeout:      time.Duration(cfg.Explainer.TimeoutSec) * time.Second,
			Logger:       logger,
		}))
	}
	evaluationSvc := evaluationuc.New(recommendSvc.WithoutExplainer(), idx, logger).WithConcurrency(cfg.Evaluation.Concurrency)

	// Pass nil interface (not typed nil pointer!) when the cache is disabled.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(idx, cachePinger, newEmbeddingHealthChecker(docEmbedder))

	// Initial catalog build. A failure keeps the server up and unhealthy until
	// POST /catalog/rebuild succeeds.
	if res, err := indexerSvc.Rebuild(ctx); err != nil {
		logger.Error("Initial catalog build failed", zap.Error(err))
	} else {
		logger.Info("Catalog loaded", zap.Int("items", res.Items), zap.Int("dimensions", res.Dimensions))
	}

	server := chiTransport.NewServer(recommendSvc, evaluationSvc, indexerSvc, healthSvc, logger).
		WithMaxBatchQueries(cfg.HTTP.MaxBatchQueries).
		WithCORSOrigins(cfg.HTTP.CORSOrigins)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(
	cfg *config.Config,
	instruction, namespace string,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	ec := cfg.Embedding

	// Base provider (with transport metrics built-in)
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     ec.APIKey,
		BaseURL:    ec.BaseURL,
		Model:      ec.Model,
		Dimensions: ec.Dimensions,
		Provider:   ec.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		// Cache keys carry the model so switching models never serves stale vectors.
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: cfg.Cache.KeyPrefix,
			Namespace: ec.Model + ":" + namespace,
			TTL:       cfg.Cache.TTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(embedder, ec.Provider, ec.Model, logger).
		WithRateLimit(ec.RateLimit.RPS, ec.RateLimit.Burst).
		WithMaxBatchSize(ec.BatchSize)
	if ec.Breaker.Enabled {
		instrumented = instrumented.WithBreaker(embeddinguc.BreakerSettings{
			MinRequests:  ec.Breaker.MinRequests,
			FailureRatio: ec.Breaker.FailureRatio,
			Interval:     time.Duration(ec.Breaker.IntervalSec) * time.Second,
			Timeout:      time.Duration(ec.Breaker.TimeoutSec) * time.Second,
		})
	}
	embedder = instrumented

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
