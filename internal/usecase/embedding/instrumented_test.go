package embedding

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	calls      atomic.Int32
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	return m.result, m.err
}

// batchMock adds native batching on top of mockEmbedder.
type batchMock struct {
	mockEmbedder
	short bool
}

func (m *batchMock) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	embeddings := make([][]float32, n)
	for i := range embeddings {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.result.TotalTokens * n,
	}, nil
}

type healthMock struct {
	mockEmbedder
	healthErr error
}

func (m *healthMock) HealthCheck(context.Context) error { return m.healthErr }

func TestInstrumentedEmbedder_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 4}}
	p := NewInstrumentedEmbedder(inner, "test", "test-model", zap.NewNop())

	result, err := p.Embed(context.Background(), "Java developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestInstrumentedEmbedder_ErrorIsWrappedAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	inner := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	p := NewInstrumentedEmbedder(inner, "test", "m", zap.New(core))

	_, err := p.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if logs.FilterMessage("Embedding request failed").Len() != 1 {
		t.Error("expected an error log entry")
	}
}

func TestInstrumentedEmbedder_RateLimitHonorsContext(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, "test", "m", nil).WithRateLimit(0.001, 1)

	if _, err := p.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Embed(ctx, "second")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("limited call must not reach the provider, calls = %d", inner.calls.Load())
	}
}

func TestInstrumentedEmbedder_RateLimitDisabled(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}
	p := NewInstrumentedEmbedder(inner, "test", "m", nil).WithRateLimit(0, 0)
	for range 20 {
		if _, err := p.Embed(context.Background(), "x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestInstrumentedEmbedder_BreakerOpens(t *testing.T) {
	inner := &healthMock{mockEmbedder: mockEmbedder{err: errors.New("503")}}
	p := NewInstrumentedEmbedder(inner, "breaker-test", "m", nil).WithBreaker(BreakerSettings{
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Hour,
	})

	for range 3 {
		if _, err := p.Embed(context.Background(), "x"); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := p.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected breaker rejection as provider error, got %v", err)
	}
	if inner.calls.Load() != 3 {
		t.Errorf("open breaker must not call the provider, calls = %d", inner.calls.Load())
	}
	if err := p.HealthCheck(context.Background()); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("health check should report open breaker, got %v", err)
	}
}

func TestInstrumentedEmbedder_BreakerIgnoresCancellation(t *testing.T) {
	inner := &mockEmbedder{err: context.Canceled}
	p := NewInstrumentedEmbedder(inner, "cancel-test", "m", nil).WithBreaker(BreakerSettings{
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Hour,
	})

	for range 5 {
		_, err := p.Embed(context.Background(), "x")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if inner.calls.Load() != 5 {
		t.Errorf("cancellations must not open the breaker, calls = %d", inner.calls.Load())
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Chunks(t *testing.T) {
	inner := &batchMock{mockEmbedder: mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 2}}}
	p := NewInstrumentedEmbedder(inner, "test", "m", nil).WithMaxBatchSize(2)

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 || res.TotalTokens != 10 {
		t.Fatalf("unexpected result: %d embeddings, %d tokens", len(res.Embeddings), res.TotalTokens)
	}
	if len(inner.batchSizes) != 3 || inner.batchSizes[2] != 1 {
		t.Errorf("expected chunks [2 2 1], got %v", inner.batchSizes)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_Empty(t *testing.T) {
	inner := &batchMock{}
	res, err := NewInstrumentedEmbedder(inner, "test", "m", nil).BatchEmbed(context.Background(), nil)
	if err != nil || len(res.Embeddings) != 0 || len(inner.batchSizes) != 0 {
		t.Fatalf("empty batch: %+v, %v, calls %v", res, err, inner.batchSizes)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_ShortResponse(t *testing.T) {
	inner := &batchMock{mockEmbedder: mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1}}}, short: true}
	_, err := NewInstrumentedEmbedder(inner, "test", "m", nil).BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error for short response, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_InnerError(t *testing.T) {
	boom := errors.New("boom")
	inner := &batchMock{mockEmbedder: mockEmbedder{err: boom}}
	_, err := NewInstrumentedEmbedder(inner, "test", "m", nil).BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected inner error, got %v", err)
	}
}

func TestInstrumentedEmbedder_BatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 3}}
	res, err := NewInstrumentedEmbedder(inner, "test", "m", nil).BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.TotalTokens != 6 || inner.calls.Load() != 2 {
		t.Fatalf("unexpected fallback result: %+v, calls %d", res, inner.calls.Load())
	}
}

func TestInstrumentedEmbedder_HealthCheckDelegates(t *testing.T) {
	down := errors.New("down")
	p := NewInstrumentedEmbedder(&healthMock{healthErr: down}, "test", "m", nil)
	if err := p.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Fatalf("expected inner health error, got %v", err)
	}
	if err := NewInstrumentedEmbedder(&mockEmbedder{}, "test", "m", nil).HealthCheck(context.Background()); err != nil {
		t.Fatalf("embedder without health check should be healthy, got %v", err)
	}
}
