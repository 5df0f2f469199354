package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
)

// --- Mocks ---

type fakeAssistant struct {
	askFn     func(ctx context.Context, q string) (*assistant.Answer, error)
	compileFn func(q string) (query.Compiled, error)
	recoverFn func(text string) (assistant.Recovered, error)
	refreshFn func(ctx context.Context) (assistant.RefreshReport, error)
	snap      *dommeta.Snapshot
	asked     []string
}

func (f *fakeAssistant) Ask(ctx context.Context, q string) (*assistant.Answer, error) {
	f.asked = append(f.asked, q)
	if f.askFn != nil {
		return f.askFn(ctx, q)
	}
	return &assistant.Answer{Question: q, Source: assistant.SourceCompiler}, nil
}

func (f *fakeAssistant) Compile(q string) (query.Compiled, error) {
	if f.compileFn != nil {
		return f.compileFn(q)
	}
	return query.Compiled{Collection: "orders"}, nil
}

func (f *fakeAssistant) Recover(text string) (assistant.Recovered, error) {
	if f.recoverFn != nil {
		return f.recoverFn(text)
	}
	return assistant.Recovered{}, domain.ErrUnparseable
}

func (f *fakeAssistant) Collections() *dommeta.Snapshot { return f.snap }

func (f *fakeAssistant) Refresh(ctx context.Context) (assistant.RefreshReport, error) {
	if f.refreshFn != nil {
		return f.refreshFn(ctx)
	}
	return assistant.RefreshReport{Collections: f.snap.Names(), Indexed: true}, nil
}

type fakeHealth struct{ report healthuc.Report }

func (f fakeHealth) Check(context.Context) healthuc.Report { return f.report }

func newTestRouter(a *fakeAssistant, keys ...string) http.Handler {
	h := fakeHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK}}}
	return NewRouter(NewServer(a, h, zap.NewNop()), keys)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

// --- Tests ---

func TestAsk_OK(t *testing.T) {
	a := &fakeAssistant{askFn: func(_ context.Context, q string) (*assistant.Answer, error) {
		return &assistant.Answer{
			TraceID:  "t-1",
			Question: q,
			Source:   assistant.SourceTemplate,
			Elapsed:  1500 * time.Millisecond,
		}, nil
	}}
	rec := do(t, newTestRouter(a), http.MethodPost, "/v1/ask", `{"question":"How many orders?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["trace_id"] != "t-1" || body["source"] != "template" {
		t.Errorf("unexpected body %v", body)
	}
	if body["elapsed_ms"] != float64(1500) {
		t.Errorf("elapsed_ms = %v", body["elapsed_ms"])
	}
	if len(a.asked) != 1 || a.asked[0] != "How many orders?" {
		t.Errorf("asked = %v", a.asked)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestAsk_BadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty", ``, http.StatusBadRequest},
		{"not json", `question`, http.StatusBadRequest},
		{"unknown field", `{"q":"x"}`, http.StatusBadRequest},
		{"too large", fmt.Sprintf(`{"question":"%s"}`, strings.Repeat("a", DefaultMaxBodyBytes)), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAssistant{}
			rec := do(t, newTestRouter(a), http.MethodPost, "/v1/ask", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := decodeError(t, rec).Code; got != CodeBadRequest {
				t.Errorf("code = %s", got)
			}
			if len(a.asked) != 0 {
				t.Error("assistant must not be called")
			}
		})
	}
}

func TestAsk_DomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     ErrorCode
		internal bool
	}{
		{"invalid", fmt.Errorf("%w: empty question", domain.ErrInvalidRequest), http.StatusBadRequest, CodeBadRequest, false},
		{"prohibited", domain.NewProhibited("$out"), http.StatusForbidden, CodeProhibitedOperation, false},
		{"unparseable", domain.ErrUnparseable, http.StatusUnprocessableEntity, CodeUnparseable, false},
		{"declined", domain.ErrModelDeclined, http.StatusUnprocessableEntity, CodeModelDeclined, false},
		{"llm", fmt.Errorf("%w: upstream 500", domain.ErrLLMProviderError), http.StatusBadGateway, CodeLLMProviderError, false},
		{"store", fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable, false},
		{"unknown", errors.New("secret connection string"), http.StatusInternalServerError, CodeInternalError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAssistant{askFn: func(context.Context, string) (*assistant.Answer, error) { return nil, tt.err }}
			rec := do(t, newTestRouter(a), http.MethodPost, "/v1/ask", `{"question":"x"}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if strings.Contains(resp.Message, "secret") || strings.Contains(resp.Message, "dial tcp") {
				t.Errorf("message leaks internals: %q", resp.Message)
			}
		})
	}
}

func TestAsk_ProhibitedKeyword(t *testing.T) {
	a := &fakeAssistant{askFn: func(context.Context, string) (*assistant.Answer, error) {
		return nil, domain.NewProhibited("drop")
	}}
	rec := do(t, newTestRouter(a), http.MethodPost, "/v1/ask", `{"question":"drop the orders"}`)
	if got := decodeError(t, rec).Keyword; got != "drop" {
		t.Errorf("keyword = %q, want drop", got)
	}
}

func TestCompile(t *testing.T) {
	a := &fakeAssistant{}
	rec := do(t, newTestRouter(a), http.MethodPost, "/v1/compile", `{"question":"count orders"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got query.Compiled
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Collection != "orders" {
		t.Errorf("collection = %q", got.Collection)
	}
}

func TestRecover_Unparseable(t *testing.T) {
	rec := do(t, newTestRouter(&fakeAssistant{}), http.MethodPost, "/v1/recover", `{"text":"hello"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListCollections(t *testing.T) {
	builtAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &fakeAssistant{snap: dommeta.NewSnapshot([]dommeta.CollectionMetadata{
		{Name: "orders", DocumentCount: 10},
		{Name: "customers", DocumentCount: 3},
	}, builtAt)}
	rec := do(t, newTestRouter(a), http.MethodGet, "/v1/collections", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got CollectionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || len(got.Collections) != 2 {
		t.Errorf("got %+v", got)
	}
	if got.BuiltAt == nil || !got.BuiltAt.Equal(builtAt) {
		t.Errorf("built_at = %v", got.BuiltAt)
	}
}

func TestListCollections_Empty(t *testing.T) {
	rec := do(t, newTestRouter(&fakeAssistant{}), http.MethodGet, "/v1/collections", "")
	if !strings.Contains(rec.Body.String(), `"collections":[]`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestRefreshCollections(t *testing.T) {
	a := &fakeAssistant{refreshFn: func(context.Context) (assistant.RefreshReport, error) {
		return assistant.RefreshReport{}, fmt.Errorf("%w: timeout", domain.ErrStoreUnavailable)
	}}
	rec := do(t, newTestRouter(a), http.MethodPost, "/v1/collections/refresh", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			s := NewServer(&fakeAssistant{}, fakeHealth{report: healthuc.Report{Status: tt.status}}, zap.NewNop())
			rec := do(t, NewRouter(s, []string{"key"}), http.MethodGet, "/health", "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRouter_AuthAndNotFound(t *testing.T) {
	h := newTestRouter(&fakeAssistant{}, "secret")
	if rec := do(t, h, http.MethodPost, "/v1/ask", `{"question":"x"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}

	open := newTestRouter(&fakeAssistant{})
	rec := do(t, open, http.MethodGet, "/v1/nope", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != CodeNotFound {
		t.Errorf("not found: status = %d", rec.Code)
	}
	if rec := do(t, open, http.MethodGet, "/v1/ask", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("method: status = %d", rec.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	a := &fakeAssistant{askFn: func(context.Context, string) (*assistant.Answer, error) { panic("boom") }}
	rec := do(t, newTestRouter(a), http.MethodPost, "/v1/ask", `{"question":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != CodeInternalError {
		t.Errorf("code = %s", got)
	}
}
