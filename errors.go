package recdex

import (
	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/index"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration          = domain.ErrConfiguration
	ErrEmbedding              = domain.ErrEmbedding
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrRateLimited            = domain.ErrRateLimited
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEvaluationData         = domain.ErrEvaluationData
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrBuildInProgress        = index.ErrBuildInProgress
)
