package recdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/recdex/internal/db/redis"
	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/index"
	"github.com/kailas-cloud/recdex/internal/metrics"
	catalogrepo "github.com/kailas-cloud/recdex/internal/repository/catalog"
	"github.com/kailas-cloud/recdex/internal/repository/embcache"
	openaiTransport "github.com/kailas-cloud/recdex/internal/transport/openai"
	"github.com/kailas-cloud/recdex/internal/usecase/balance"
	"github.com/kailas-cloud/recdex/internal/usecase/canonical"
	embeddinguc "github.com/kailas-cloud/recdex/internal/usecase/embedding"
	evaluationuc "github.com/kailas-cloud/recdex/internal/usecase/evaluation"
	"github.com/kailas-cloud/recdex/internal/usecase/indexer"
	"github.com/kailas-cloud/recdex/internal/usecase/recommend"
	"github.com/kailas-cloud/recdex/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the recdex entry point. It is safe for concurrent use; Rebuild
// swaps the served catalog atomically.
type Client struct {
	store     *dbRedis.Store
	index     *index.Flat
	indexer   *indexer.Service
	recommend *recommend.Service
	evaluate  *evaluationuc.Service
}

// New creates a Client. The catalog is not embedded until Rebuild is called;
// until then Recommend returns empty sets.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{logger: zap.NewNop()}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	if b := cfg.breaker; b != nil && (b.FailureRatio <= 0 || b.FailureRatio > 1) {
		return nil, fmt.Errorf("recdex: breaker failure ratio must be in (0, 1], got %v", b.FailureRatio)
	}
	if cfg.embedder == nil && cfg.openAI == nil {
		return nil, errors.New("recdex: embedder required (use WithEmbedder or WithOpenAI)")
	}
	if cfg.catalogPath == "" && len(cfg.catalogItems) == 0 {
		return nil, errors.New("recdex: catalog required (use WithCatalogFile or WithCatalog)")
	}

	var store *dbRedis.Store
	if cfg.redis != nil {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redis.addrs, Password: cfg.redis.password})
		if err != nil {
			return nil, fmt.Errorf("recdex: create redis store: %w", err)
		}
		if err := s.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("recdex: redis not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(cfg, store)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

func wireClient(cfg *clientConfig, store *dbRedis.Store) (*Client, error) {
	log := cfg.logger

	var source indexer.Source
	if len(cfg.catalogItems) > 0 {
		items := make([]catalog.Item, len(cfg.catalogItems))
		for i, it := range cfg.catalogItems {
			di, err := itemToDomain(it)
			if err != nil {
				return nil, fmt.Errorf("recdex: catalog item %d: %w", i, err)
			}
			items[i] = di
		}
		source = staticSource(items)
	} else {
		source = catalogrepo.NewFileSource(cfg.catalogPath, log)
	}

	scorer, err := balance.New(orDefault(cfg.technicalShare, balance.DefaultTechnicalShare), log)
	if err != nil {
		return nil, fmt.Errorf("recdex: %w", err)
	}

	docEmbedder := buildEmbedder(cfg, cfg.embedder, cfg.docInstruction, "doc", store)
	queryBase := cfg.queryEmbedder
	if queryBase == nil {
		queryBase = cfg.embedder
	}
	queryEmbedder := buildEmbedder(cfg, queryBase, cfg.queryInstruction, "query", store)

	idx := index.NewFlat()
	idxSvc := indexer.New(source, docEmbedder, idx, log).WithBatchSize(cfg.embedBatchSize)

	canon := canonical.New(canonical.NewKeywordClassifier(cfg.extraTechnical, cfg.extraSoftSkill))
	retriever := retrieval.New(canon, queryEmbedder, idx, retrieval.Config{
		MinResults:          cfg.minResults,
		MaxResults:          cfg.maxResults,
		DefaultResults:      cfg.defaultResults,
		SimilarityThreshold: orDefault(cfg.threshold, retrieval.DefaultConfig().SimilarityThreshold),
	})

	recSvc := recommend.New(retriever, scorer, idx, log).WithCandidatePoolFactor(cfg.poolFactor)
	if cfg.explainer != nil {
		recSvc = recSvc.WithExplainer(openaiTransport.NewExplainer(&openaiTransport.ExplainerConfig{
			APIKey:  cfg.explainer.apiKey,
			BaseURL: cfg.explainer.baseURL,
			Model:   cfg.explainer.model,
			Logger:  log,
		}))
	}
	evalSvc := evaluationuc.New(recSvc.WithoutExplainer(), idx, log).WithConcurrency(cfg.concurrency)

	return &Client{
		store:     store,
		index:     idx,
		indexer:   idxSvc,
		recommend: recSvc,
		evaluate:  evalSvc,
	}, nil
}

// buildEmbedder assembles: provider -> Redis cache -> instrumentation -> instruction.
// A nil user embedder means the configured OpenAI endpoint.
func buildEmbedder(cfg *clientConfig, user Embedder, instruction, namespace string, store *dbRedis.Store) domain.Embedder {
	var base domain.Embedder
	provider, model := "custom", "custom"
	if user != nil {
		base = &embedderAdapter{inner: user}
	} else {
		provider, model = "openai", cfg.openAI.model
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.openAI.apiKey,
			BaseURL:    cfg.openAI.baseURL,
			Model:      cfg.openAI.model,
			Dimensions: cfg.dimensions,
			Provider:   provider,
			Logger:     cfg.logger,
		})
	}

	embedder := base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			Namespace: model + ":" + namespace,
			TTL:       cfg.redis.ttl,
		}, metrics.EmbeddingCacheTotal, cfg.logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(embedder, provider, model, cfg.logger).
		WithRateLimit(cfg.rps, cfg.burst).
		WithMaxBatchSize(cfg.embedBatchSize)
	if b := cfg.breaker; b != nil {
		instrumented = instrumented.WithBreaker(embeddinguc.BreakerSettings{
			MinRequests:  b.MinRequests,
			FailureRatio: b.FailureRatio,
			Interval:     b.Interval,
			Timeout:      b.Timeout,
		})
	}
	embedder = instrumented

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Rebuild loads the catalog, embeds every item and swaps the served snapshot.
// On failure the previous snapshot keeps serving.
func (c *Client) Rebuild(ctx context.Context) (RebuildResult, error) {
	res, err := c.indexer.Rebuild(ctx)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("rebuild: %w", err)
	}
	return RebuildResult{Items: res.Items, Dimensions: res.Dimensions, TotalTokens: res.TotalTokens}, nil
}

// Recommend returns up to limit items for q, clamped to the configured bounds.
// Queries that need both technical and behavioural assessments get a
// category-balanced set.
func (c *Client) Recommend(ctx context.Context, q Query, limit int) (RecommendationSet, error) {
	set, err := c.recommend.Recommend(ctx, q.toDomain(), limit)
	if err != nil {
		return RecommendationSet{}, fmt.Errorf("recommend: %w", err)
	}
	return setFromDomain(&set), nil
}

// Evaluate measures Recall@K for each k (default 5 and 10) over labeled queries.
// Malformed records are skipped and listed in the report.
func (c *Client) Evaluate(ctx context.Context, labeled []LabeledQuery, kValues ...int) (Report, error) {
	rep, err := c.evaluate.Evaluate(ctx, labeledToDomain(labeled), kValues)
	if err != nil {
		return Report{}, fmt.Errorf("evaluate: %w", err)
	}
	return reportFromDomain(&rep), nil
}

// Stats describes the served catalog.
func (c *Client) Stats() CatalogStats {
	st := c.recommend.Stats()
	per := make(map[Category]int, len(st.PerCategory))
	for cat, n := range st.PerCategory {
		per[Category(cat)] = n
	}
	return CatalogStats{Total: st.Total, PerCategory: per, Dimensions: st.Dimensions}
}

// Items returns the served catalog in insertion order.
func (c *Client) Items() []Item {
	items := c.index.Items()
	out := make([]Item, len(items))
	for i := range items {
		out[i] = itemFromDomain(&items[i])
	}
	return out
}

// staticSource serves an in-memory catalog.
type staticSource []catalog.Item

func (s staticSource) Load(ctx context.Context) ([]catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return append([]catalog.Item(nil), s...), nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
