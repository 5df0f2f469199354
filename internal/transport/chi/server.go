// Package chi exposes the question pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 64 << 10

// Assistant is the question pipeline.
type Assistant interface {
	Ask(ctx context.Context, question string) (*assistant.Answer, error)
	Compile(question string) (query.Compiled, error)
	Recover(text string) (assistant.Recovered, error)
	Collections() *dommeta.Snapshot
	Refresh(ctx context.Context) (assistant.RefreshReport, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	assistant     Assistant
	health        HealthChecker
	logger        *zap.Logger
	maxBody       int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(a Assistant, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		assistant:     a,
		health:        health,
		logger:        logger,
		maxBody:       DefaultMaxBodyBytes,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithMaxBody overrides the request body cap.
func (s *Server) WithMaxBody(n int64) *Server {
	if n > 0 {
		s.maxBody = n
	}
	return s
}

// AskRequest is the body of POST /v1/ask and POST /v1/compile.
type AskRequest struct {
	Question string `json:"question"`
}

// RecoverRequest is the body of POST /v1/recover.
type RecoverRequest struct {
	Text string `json:"text"`
}

// AskResponse is an answer with its latency.
type AskResponse struct {
	*assistant.Answer
	ElapsedMS int64 `json:"elapsed_ms"`
}

// CollectionsResponse lists the metadata snapshot.
type CollectionsResponse struct {
	Collections []dommeta.CollectionMetadata `json:"collections"`
	Count       int                          `json:"count"`
	BuiltAt     *time.Time                   `json:"built_at,omitempty"`
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	ans, err := s.assistant.Ask(r.Context(), req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Answer: ans, ElapsedMS: ans.Elapsed.Milliseconds()})
}

// Compile handles POST /v1/compile.
func (s *Server) Compile(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !s.decode(w, r, &req) {
		return
	}
	compiled, err := s.assistant.Compile(req.Question)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compiled)
}

// Recover handles POST /v1/recover.
func (s *Server) Recover(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.assistant.Recover(req.Text)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListCollections handles GET /v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, _ *http.Request) {
	snap := s.assistant.Collections()
	resp := CollectionsResponse{Collections: snap.Collections(), Count: snap.Len()}
	if resp.Collections == nil {
		resp.Collections = []dommeta.CollectionMetadata{}
	}
	if at := snap.BuiltAt(); !at.IsZero() {
		resp.BuiltAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

// RefreshCollections handles POST /v1/collections/refresh.
func (s *Server) RefreshCollections(w http.ResponseWriter, r *http.Request) {
	report, err := s.assistant.Refresh(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads a JSON body. On failure it writes the 400 and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, CodeBadRequest, "request body is empty")
		default:
			writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+trimJSONError(err))
		}
		return false
	}
	return true
}

func trimJSONError(err error) string {
	return strings.TrimPrefix(err.Error(), "json: ")
}
