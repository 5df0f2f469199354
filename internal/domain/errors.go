package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed or empty request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnparseable signals that no supported command invocation was found in text.
	ErrUnparseable = errors.New("unparseable command")
	// ErrProhibitedOperation signals a mutating operation rejected by the safety gate.
	ErrProhibitedOperation = errors.New("prohibited operation")
	// ErrNoRelevantCollection signals that no collection scored above the relevance threshold.
	ErrNoRelevantCollection = errors.New("no relevant collection")
	// ErrModelDeclined signals that the language model refused to produce a query.
	ErrModelDeclined = errors.New("model declined")
	// ErrLLMProviderError signals a language-model provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrStoreUnavailable signals that the document store could not be reached.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// ProhibitedError wraps ErrProhibitedOperation with the vocabulary entry that matched.
type ProhibitedError struct {
	Keyword string
}

func (e *ProhibitedError) Error() string {
	return fmt.Sprintf("%s: %q is not allowed, the database is read-only", ErrProhibitedOperation.Error(), e.Keyword)
}

func (e *ProhibitedError) Unwrap() error { return ErrProhibitedOperation }

// NewProhibited creates a prohibited-operation error for keyword.
func NewProhibited(keyword string) error {
	return &ProhibitedError{Keyword: keyword}
}
