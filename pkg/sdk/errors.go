package docquery

import "github.com/kailas-cloud/docquery/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrUnparseable            = domain.ErrUnparseable
	ErrProhibitedOperation    = domain.ErrProhibitedOperation
	ErrModelDeclined          = domain.ErrModelDeclined
	ErrLLMProviderError       = domain.ErrLLMProviderError
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
)

// ProhibitedError carries the keyword that triggered a rejection.
// Use errors.As() to check.
type ProhibitedError = domain.ProhibitedError
