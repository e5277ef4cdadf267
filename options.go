package recdex

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type openAIConfig struct {
	apiKey  string
	baseURL string
	model   string
}

type redisConfig struct {
	addrs    []string
	password string
	ttl      time.Duration
}

// BreakerSettings configures the embedding circuit breaker.
type BreakerSettings struct {
	// MinRequests is the sample size before the failure ratio is judged.
	MinRequests uint32
	// FailureRatio in (0, 1] opens the breaker.
	FailureRatio float64
	// Interval resets counts while closed; zero never resets.
	Interval time.Duration
	// Timeout is how long the breaker stays open before letting a trial call through.
	Timeout time.Duration
}

type clientConfig struct {
	embedder      Embedder
	queryEmbedder Embedder
	openAI        *openAIConfig
	explainer     *openAIConfig
	redis         *redisConfig

	dimensions       int
	docInstruction   string
	queryInstruction string
	rps              float64
	burst            int
	breaker          *BreakerSettings
	embedBatchSize   int

	catalogPath  string
	catalogItems []Item

	minResults     int
	maxResults     int
	defaultResults int
	threshold      float64
	poolFactor     int
	technicalShare float64
	extraTechnical []string
	extraSoftSkill []string
	concurrency    int

	logger *zap.Logger
}

// WithEmbedder sets the text embedding provider for catalog items and queries.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryEmbedder sets a separate embedder for queries. Defaults to the
// catalog embedder.
func WithQueryEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryEmbedder = e
	})
}

// WithOpenAI uses an OpenAI-compatible embeddings endpoint. An empty baseURL
// targets api.openai.com.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.openAI = &openAIConfig{apiKey: apiKey, baseURL: baseURL, model: model}
	})
}

// WithDimensions requests shortened embeddings from WithOpenAI models that support it.
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithInstructions prepends instructions to document and query texts before
// embedding (e.g. "passage: " and "query: " for e5 models).
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.docInstruction = document
		c.queryInstruction = query
	})
}

// WithRateLimit throttles embedding calls to rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return optionFunc(func(c *clientConfig) {
		c.rps = rps
		c.burst = burst
	})
}

// WithBreaker stops calling the embedding provider once its failure ratio
// is reached; calls fail fast with ErrEmbeddingProviderError until Timeout.
func WithBreaker(s BreakerSettings) Option {
	return optionFunc(func(c *clientConfig) {
		c.breaker = &s
	})
}

// WithEmbedBatchSize sets how many catalog items are embedded per call.
func WithEmbedBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedBatchSize = n
	})
}

// WithRedisCache caches embeddings in Redis. ttl 0 keeps entries forever.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.redis = &redisConfig{addrs: []string{addr}, password: password, ttl: ttl}
	})
}

// WithOpenAIExplainer adds a one-line explanation per recommended item,
// written by a chat model.
func WithOpenAIExplainer(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.explainer = &openAIConfig{apiKey: apiKey, baseURL: baseURL, model: model}
	})
}

// WithCatalogFile loads the catalog from a .json or .csv file on Rebuild.
func WithCatalogFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogPath = path
	})
}

// WithCatalog serves a fixed, in-memory catalog.
func WithCatalog(items []Item) Option {
	return optionFunc(func(c *clientConfig) {
		c.catalogItems = append([]Item(nil), items...)
	})
}

// WithLimits bounds the number of recommendations. Requests outside
// [minimum, maximum] are clamped; a non-positive request gets def.
// Defaults: 5, 10, 5.
func WithLimits(minimum, maximum, def int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minResults, c.maxResults, c.defaultResults = minimum, maximum, def
	})
}

// WithSimilarityThreshold sets the score at which items are labeled highly relevant.
func WithSimilarityThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.threshold = t
	})
}

// WithCandidatePoolFactor sets how many candidates per slot are balanced. Default 3.
func WithCandidatePoolFactor(f int) Option {
	return optionFunc(func(c *clientConfig) {
		c.poolFactor = f
	})
}

// WithTechnicalShare sets the Knowledge & Skills share of sets that need both
// categories. Must lie in (0, 1); defaults to 0.5.
func WithTechnicalShare(share float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.technicalShare = share
	})
}

// WithKeywords extends the built-in intent keyword lists.
func WithKeywords(technical, softSkill []string) Option {
	return optionFunc(func(c *clientConfig) {
		c.extraTechnical = technical
		c.extraSoftSkill = softSkill
	})
}

// WithEvaluationConcurrency bounds in-flight queries during Evaluate.
func WithEvaluationConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.concurrency = n
	})
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
