package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals an empty or invalid catalog at index build time.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmbedding signals that the query or document encoder failed.
	ErrEmbedding = errors.New("embedding error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExplanationProvider signals a failed or unusable explanation completion.
	ErrExplanationProvider = errors.New("explanation provider error")
	// ErrRateLimited signals a local rate limit hit before calling the provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrBalanceInfeasible signals that the target category mix could not be met.
	// It is only ever logged; balancing degrades to best-effort fill.
	ErrBalanceInfeasible = errors.New("balance infeasible")
	// ErrEvaluationData signals a malformed labeled query.
	ErrEvaluationData = errors.New("evaluation data error")
	// ErrInvalidQuery signals a query that cannot be canonicalized.
	ErrInvalidQuery = errors.New("invalid query")
)

// ConfigurationError describes why a catalog snapshot was rejected.
type ConfigurationError struct {
	ItemID string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: item %q: %s", ErrConfiguration.Error(), e.ItemID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error, optionally bound to an item.
func NewConfigurationError(itemID, reason string) error {
	return &ConfigurationError{ItemID: itemID, Reason: reason}
}

// EmbeddingError wraps an encoder failure. errors.Is matches both ErrEmbedding
// and the underlying cause.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s: %v", ErrEmbedding.Error(), e.Err)
}

func (e *EmbeddingError) Unwrap() []error { return []error{ErrEmbedding, e.Err} }

// NewEmbeddingError wraps err as an EmbeddingError.
func NewEmbeddingError(err error) error {
	return &EmbeddingError{Err: err}
}

// EvaluationDataError describes a labeled query excluded from aggregation.
type EvaluationDataError struct {
	QueryID string
	Reason  string
}

func (e *EvaluationDataError) Error() string {
	return fmt.Sprintf("%s: query %q: %s", ErrEvaluationData.Error(), e.QueryID, e.Reason)
}

func (e *EvaluationDataError) Unwrap() error { return ErrEvaluationData }

// NewEvaluationDataError creates an evaluation data error for a labeled query.
func NewEvaluationDataError(queryID, reason string) error {
	return &EvaluationDataError{QueryID: queryID, Reason: reason}
}
