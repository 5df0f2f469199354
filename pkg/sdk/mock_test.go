package docquery

import (
	"context"

	"github.com/kailas-cloud/docquery/internal/db"
	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/assistant"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
)

// --- assistantUseCase mock ---

type mockAssistant struct {
	askFn     func(ctx context.Context, q string) (*assistant.Answer, error)
	compileFn func(q string) (query.Compiled, error)
	refreshFn func(ctx context.Context) (assistant.RefreshReport, error)
	snap      *dommeta.Snapshot
}

func (m *mockAssistant) Ask(ctx context.Context, q string) (*assistant.Answer, error) {
	return m.askFn(ctx, q)
}

func (m *mockAssistant) Compile(q string) (query.Compiled, error) {
	return m.compileFn(q)
}

func (m *mockAssistant) Collections() *dommeta.Snapshot { return m.snap }

func (m *mockAssistant) Refresh(ctx context.Context) (assistant.RefreshReport, error) {
	return m.refreshFn(ctx)
}

// --- healthUseCase mock ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- documentStore mock ---

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Find(context.Context, string, map[string]any, int64) ([]map[string]any, error) {
	return nil, nil
}

func (m *mockStore) Aggregate(context.Context, string, []map[string]any, int) ([]map[string]any, error) {
	return nil, nil
}

func (m *mockStore) CountDocuments(context.Context, string, map[string]any) (int64, error) {
	return 0, nil
}

func (m *mockStore) ListCollections(context.Context) ([]string, error) { return nil, nil }

func (m *mockStore) EstimatedCount(context.Context, string) (int64, error) { return 0, nil }

func (m *mockStore) SampleDocument(context.Context, string) (db.OrderedDocument, error) {
	return nil, nil
}

func (m *mockStore) ListIndexes(context.Context, string) ([]string, error) { return nil, nil }

func (m *mockStore) Ping(context.Context) error { return m.pingErr }

func (m *mockStore) Close(context.Context) error {
	m.closed = true
	return nil
}

// --- Embedder / Generator mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

type mockGenerator struct {
	fn func(ctx context.Context, system, user string, temperature float32) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, system, user string, temperature float32) (string, error) {
	return m.fn(ctx, system, user, temperature)
}
