package domain

import (
	"errors"
	"testing"
)

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("a1", "empty description")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatal("expected errors.Is(err, ErrConfiguration)")
	}
	if err.Error() != `configuration error: item "a1": empty description` {
		t.Errorf("unexpected message: %q", err.Error())
	}

	var ce *ConfigurationError
	if !errors.As(err, &ce) || ce.ItemID != "a1" {
		t.Errorf("expected ConfigurationError for a1, got %#v", ce)
	}

	if got := NewConfigurationError("", "catalog is empty").Error(); got != "configuration error: catalog is empty" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestEmbeddingError_MatchesBothSentinels(t *testing.T) {
	err := NewEmbeddingError(ErrEmbeddingProviderError)
	if !errors.Is(err, ErrEmbedding) {
		t.Error("expected errors.Is(err, ErrEmbedding)")
	}
	if !errors.Is(err, ErrEmbeddingProviderError) {
		t.Error("expected errors.Is(err, ErrEmbeddingProviderError)")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("embedding error must not match ErrConfiguration")
	}
}

func TestEvaluationDataError(t *testing.T) {
	err := NewEvaluationDataError("q7", "empty ground truth")
	if !errors.Is(err, ErrEvaluationData) {
		t.Fatal("expected errors.Is(err, ErrEvaluationData)")
	}
	var ee *EvaluationDataError
	if !errors.As(err, &ee) || ee.Reason != "empty ground truth" {
		t.Errorf("unexpected unwrap: %#v", ee)
	}
}
