package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the recdex service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Explainer  ExplainerConfig  `yaml:"explainer"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Balance    BalanceConfig    `yaml:"balance"`
	Canonical  CanonicalConfig  `yaml:"canonical"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
	MaxBatchQueries int      `yaml:"max_batch_queries"`
}

// CatalogConfig locates the catalog snapshot.
type CatalogConfig struct {
	Path string `yaml:"path"` // .json or .csv
}

// CacheConfig holds the Redis embedding cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TTLHours         int      `yaml:"ttl_hours"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string          `yaml:"provider"`
	APIKey              string          `yaml:"api_key"`
	BaseURL             string          `yaml:"base_url"`
	Model               string          `yaml:"model"`
	Dimensions          int             `yaml:"dimensions"`
	DocumentInstruction string          `yaml:"document_instruction"`
	QueryInstruction    string          `yaml:"query_instruction"`
	BatchSize           int             `yaml:"batch_size"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
	Breaker             BreakerConfig   `yaml:"breaker"`
}

// RateLimitConfig throttles provider calls. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// BreakerConfig configures the provider circuit breaker.
type BreakerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
	IntervalSec  int     `yaml:"interval_sec"`
	TimeoutSec   int     `yaml:"timeout_sec"`
}

// ExplainerConfig holds the optional LLM explanation settings.
type ExplainerConfig struct {
	Enabled      bool    `yaml:"enabled"`
	APIKey       string  `yaml:"api_key"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float32 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TimeoutSec   int     `yaml:"timeout_sec"`
}

// RetrievalConfig bounds result sizes and the relevance label threshold.
type RetrievalConfig struct {
	MinResults          int     `yaml:"min_results"`
	MaxResults          int     `yaml:"max_results"`
	DefaultResults      int     `yaml:"default_results"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	CandidatePoolFactor int     `yaml:"candidate_pool_factor"`
}

// BalanceConfig holds the category mix for mixed-intent queries.
type BalanceConfig struct {
	TechnicalShare float64 `yaml:"technical_share"`
}

// CanonicalConfig extends the built-in intent keyword lists.
type CanonicalConfig struct {
	TechnicalKeywords []string `yaml:"technical_keywords"`
	SoftSkillKeywords []string `yaml:"soft_skill_keywords"`
}

// EvaluationConfig holds offline evaluation settings.
type EvaluationConfig struct {
	KValues     []int `yaml:"k_values"`
	Concurrency int   `yaml:"concurrency"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBatchQueries <= 0 {
		c.HTTP.MaxBatchQueries = 100
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "recdex:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Breaker.MinRequests == 0 {
		c.Embedding.Breaker.MinRequests = 10
	}
	if c.Embedding.Breaker.FailureRatio <= 0 {
		c.Embedding.Breaker.FailureRatio = 0.6
	}
	if c.Embedding.Breaker.IntervalSec <= 0 {
		c.Embedding.Breaker.IntervalSec = 60
	}
	if c.Embedding.Breaker.TimeoutSec <= 0 {
		c.Embedding.Breaker.TimeoutSec = 30
	}
	if c.Explainer.MaxTokens <= 0 {
		c.Explainer.MaxTokens = 800
	}
	if c.Explainer.TimeoutSec <= 0 {
		c.Explainer.TimeoutSec = 20
	}
	if c.Retrieval.MinResults <= 0 {
		c.Retrieval.MinResults = 5
	}
	if c.Retrieval.MaxResults <= 0 {
		c.Retrieval.MaxResults = 10
	}
	if c.Retrieval.DefaultResults <= 0 {
		c.Retrieval.DefaultResults = c.Retrieval.MinResults
	}
	if c.Retrieval.SimilarityThreshold == 0 {
		c.Retrieval.SimilarityThreshold = 0.5
	}
	if c.Retrieval.CandidatePoolFactor <= 0 {
		c.Retrieval.CandidatePoolFactor = 3
	}
	if c.Balance.TechnicalShare == 0 {
		c.Balance.TechnicalShare = 0.5
	}
	if len(c.Evaluation.KValues) == 0 {
		c.Evaluation.KValues = []int{5, 10}
	}
	if c.Evaluation.Concurrency <= 0 {
		c.Evaluation.Concurrency = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if c.Catalog.Path == "" {
		errs = append(errs, errors.New("catalog.path is required"))
	}
	if c.Embedding.Model == "" {
		errs = append(errs, errors.New("embedding.model is required"))
	}
	if c.Embedding.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("embedding.rate_limit.rps must not be negative, got %v", c.Embedding.RateLimit.RPS))
	}
	if r := c.Embedding.Breaker.FailureRatio; r > 1 {
		errs = append(errs, fmt.Errorf("embedding.breaker.failure_ratio must be in (0, 1], got %v", r))
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		errs = append(errs, errors.New("cache.addrs is required when the cache is enabled"))
	}
	if c.Explainer.Enabled && c.Explainer.Model == "" {
		errs = append(errs, errors.New("explainer.model is required when the explainer is enabled"))
	}

	r := c.Retrieval
	if r.MinResults > r.MaxResults {
		errs = append(errs, fmt.Errorf("retrieval.min_results (%d) exceeds max_results (%d)", r.MinResults, r.MaxResults))
	}
	if r.DefaultResults < r.MinResults || r.DefaultResults > r.MaxResults {
		errs = append(errs, fmt.Errorf("retrieval.default_results must be within [%d, %d], got %d",
			r.MinResults, r.MaxResults, r.DefaultResults))
	}
	if r.SimilarityThreshold < -1 || r.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("retrieval.similarity_threshold must be within [-1, 1], got %v", r.SimilarityThreshold))
	}
	if s := c.Balance.TechnicalShare; s <= 0 || s >= 1 {
		errs = append(errs, fmt.Errorf("balance.technical_share must be in (0, 1), got %v", s))
	}
	for _, k := range c.Evaluation.KValues {
		if k <= 0 {
			errs = append(errs, fmt.Errorf("evaluation.k_values must be positive, got %d", k))
			break
		}
	}
	return errors.Join(errs...)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
