package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/metrics"
)

// DefaultMaxAPIBatchSize caps the number of texts sent in one provider call.
const DefaultMaxAPIBatchSize = 256

// BreakerSettings configures the provider circuit breaker.
type BreakerSettings struct {
	// MinRequests is the sample size before the failure ratio is judged.
	MinRequests uint32
	// FailureRatio opens the breaker once reached.
	FailureRatio float64
	// Interval resets counts while closed; zero never resets.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// DefaultBreakerSettings opens after 60% failures over at least 10 requests.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
	}
}

// InstrumentedEmbedder guards an embedder with a rate limiter and a circuit
// breaker and logs every call. Transport metrics (requests, duration, tokens)
// are recorded in transport/openai; this layer owns breaker state.
type InstrumentedEmbedder struct {
	inner        domain.Embedder
	provider     string
	model        string
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[any]
	maxBatchSize int
	logger       *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder with logging. Rate limiting and
// the breaker are opt-in.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner:        inner,
		provider:     provider,
		model:        model,
		maxBatchSize: DefaultMaxAPIBatchSize,
		logger:       logger,
	}
}

// WithRateLimit allows rps provider calls per second with the given burst.
// Non-positive rps disables limiting.
func (p *InstrumentedEmbedder) WithRateLimit(rps float64, burst int) *InstrumentedEmbedder {
	if rps <= 0 {
		p.limiter = nil
		return p
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	return p
}

// WithBreaker enables the circuit breaker.
func (p *InstrumentedEmbedder) WithBreaker(s BreakerSettings) *InstrumentedEmbedder {
	name := p.provider + "-embeddings"
	metrics.EmbeddingBreakerState.WithLabelValues(p.provider).Set(0)

	p.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
		},
		// Caller cancellations say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.EmbeddingBreakerState.WithLabelValues(p.provider).Set(stateValue(to))
			p.logger.Warn("Embedding circuit breaker state change",
				zap.String("provider", p.provider),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

// WithMaxBatchSize configures the provider batch size.
func (p *InstrumentedEmbedder) WithMaxBatchSize(n int) *InstrumentedEmbedder {
	if n > 0 {
		p.maxBatchSize = n
	}
	return p
}

// Embed waits for the limiter, calls the inner embedder through the breaker
// and logs the outcome.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := guard(ctx, p, func() (domain.EmbeddingResult, error) {
		return p.inner.Embed(ctx, text)
	})
	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed splits texts into provider-sized chunks, each guarded like Embed.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	start := time.Now()

	var out domain.BatchEmbeddingResult
	out.Embeddings = make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += p.maxBatchSize {
		chunk := texts[offset:min(offset+p.maxBatchSize, len(texts))]

		res, err := guard(ctx, p, func() (domain.BatchEmbeddingResult, error) {
			return domain.BatchEmbed(ctx, p.inner, chunk)
		})
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(chunk) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w: got %d vectors for %d texts",
				domain.ErrEmbeddingProviderError, len(res.Embeddings), len(chunk))
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

// HealthCheck reports an open breaker before asking the inner embedder.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if p.breaker != nil && p.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit breaker open", domain.ErrEmbeddingProviderError)
	}
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// guard applies the limiter and the breaker around fn.
func guard[T any](ctx context.Context, p *InstrumentedEmbedder, fn func() (T, error)) (T, error) {
	var zero T
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "rate_limited").Inc()
			return zero, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}
	if p.breaker == nil {
		return fn()
	}

	res, err := p.breaker.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, p.model, "breaker_open").Inc()
			return zero, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
		}
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", res)
	}
	return typed, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
