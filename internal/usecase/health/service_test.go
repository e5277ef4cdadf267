package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockIndex struct{ size int }

func (m mockIndex) Size() int { return m.size }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(mockIndex{size: 3}, &mockPinger{}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"index", "cache", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
	if r.Items != 3 {
		t.Errorf("expected 3 items, got %d", r.Items)
	}
}

func TestCheck_CacheError(t *testing.T) {
	svc := New(mockIndex{size: 3}, &mockPinger{err: errors.New("conn refused")}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError {
		t.Errorf("expected cache %q, got %q", CheckError, r.Checks["cache"])
	}
}

func TestCheck_EmbeddingError(t *testing.T) {
	svc := New(mockIndex{size: 3}, nil, &mockEmbeddingChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding %q, got %q", CheckError, r.Checks["embedding"])
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when no cache is configured")
	}
}

func TestCheck_EmptyIndexIsUnhealthy(t *testing.T) {
	svc := New(mockIndex{}, &mockPinger{}, &mockEmbeddingChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["index"] != CheckError {
		t.Errorf("expected index %q, got %q", CheckError, r.Checks["index"])
	}
}

func TestCheck_OnlyIndex(t *testing.T) {
	r := New(mockIndex{size: 1}, nil, nil).Check(context.Background())
	if r.Status != Healthy || len(r.Checks) != 1 {
		t.Errorf("unexpected report: %+v", r)
	}
}
