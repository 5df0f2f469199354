package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/logger"
)

// ErrorCode is the machine-readable error kind in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeProhibitedOperation    ErrorCode = "prohibited_operation"
	CodeUnparseable            ErrorCode = "unparseable"
	CodeModelDeclined          ErrorCode = "model_declined"
	CodeNotFound               ErrorCode = "not_found"
	CodeLLMProviderError       ErrorCode = "llm_provider_error"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeStoreUnavailable       ErrorCode = "store_unavailable"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Keyword is the vocabulary entry that triggered a prohibited_operation.
	Keyword string `json:"keyword,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		prohibitedHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrUnparseable, http.StatusUnprocessableEntity, CodeUnparseable),
		sentinelHandler(domain.ErrModelDeclined, http.StatusUnprocessableEntity, CodeModelDeclined),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, CodeLLMProviderError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, CodeStoreUnavailable),
	}
}

// exposedSentinels are the errors whose text is safe to show to clients.
var exposedSentinels = []error{
	domain.ErrInvalidRequest,
	domain.ErrUnparseable,
	domain.ErrModelDeclined,
	domain.ErrNotFound,
	domain.ErrLLMProviderError,
	domain.ErrEmbeddingProviderError,
	domain.ErrStoreUnavailable,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var pe *domain.ProhibitedError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	for _, s := range exposedSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func prohibitedHandler(w http.ResponseWriter, err error, msg string) bool {
	var pe *domain.ProhibitedError
	if !errors.As(err, &pe) {
		if !errors.Is(err, domain.ErrProhibitedOperation) {
			return false
		}
		writeError(w, http.StatusForbidden, CodeProhibitedOperation, msg)
		return true
	}
	writeJSON(w, http.StatusForbidden, ErrorResponse{
		Code:    CodeProhibitedOperation,
		Message: msg,
		Keyword: pe.Keyword,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("Request failed", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
