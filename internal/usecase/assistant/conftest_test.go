package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/compiler"
	"github.com/kailas-cloud/docquery/internal/usecase/ranker"
	"github.com/kailas-cloud/docquery/internal/usecase/safety"
)

// fakeDispatcher records commands and answers from a script.
type fakeDispatcher struct {
	mu       sync.Mutex
	commands []query.Command
	results  []query.ExecutionResult
	err      error
	gate     *safety.Gate
}

func (f *fakeDispatcher) Execute(_ context.Context, cmd query.Command) (query.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		if err := f.gate.CheckArgument(cmd.Argument()); err != nil {
			return query.ExecutionResult{}, err
		}
	}
	f.commands = append(f.commands, cmd)
	if f.err != nil {
		return query.ExecutionResult{}, f.err
	}
	if len(f.results) > 0 {
		r := f.results[0]
		f.results = f.results[1:]
		return r, nil
	}
	return query.ExecutionResult{Documents: []query.Document{{"ok": true}}}, nil
}

type fakeCatalog struct {
	snap       *dommeta.Snapshot
	live       map[string][]dommeta.Field
	sampleErr  error
	refreshErr error
	refreshed  int
}

func (f *fakeCatalog) Snapshot() *dommeta.Snapshot { return f.snap }

func (f *fakeCatalog) Refresh(context.Context) (*dommeta.Snapshot, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.snap, nil
}

func (f *fakeCatalog) SampleFields(_ context.Context, collection string) ([]dommeta.Field, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	return f.live[collection], nil
}

type fakeRanker struct {
	ready    bool
	selected []ranker.Scored
	err      error
	buildErr error
	built    int
}

func (f *fakeRanker) Ready() bool { return f.ready }

func (f *fakeRanker) SelectContext(context.Context, string) ([]ranker.Scored, error) {
	return f.selected, f.err
}

func (f *fakeRanker) Build(context.Context, *dommeta.Snapshot) (*dommeta.EmbeddingIndex, error) {
	f.built++
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	f.ready = true
	return &dommeta.EmbeddingIndex{}, nil
}

type fakeGenerator struct {
	text string
	err  error
	reqs []domain.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.text, f.err
}

type countingObserver struct {
	decodes []string
	intents []string
	answers []string
}

func (o *countingObserver) ObserveDecode(stage string)  { o.decodes = append(o.decodes, stage) }
func (o *countingObserver) ObserveIntent(intent string) { o.intents = append(o.intents, intent) }
func (o *countingObserver) ObserveAnswer(source, outcome string) {
	o.answers = append(o.answers, source+"/"+outcome)
}

var errUpstream = errors.New("upstream failure")

func shopSnapshot() *dommeta.Snapshot {
	return dommeta.NewSnapshot([]dommeta.CollectionMetadata{
		{
			Name: "orders",
			Fields: []dommeta.Field{
				{Name: "_id", Type: dommeta.TypeObjectID},
				{Name: "customerId", Type: dommeta.TypeObjectID},
				{Name: "productId", Type: dommeta.TypeObjectID},
				{Name: "amount", Type: dommeta.TypeDouble},
				{Name: "quantity", Type: dommeta.TypeInt},
				{Name: "status", Type: dommeta.TypeString},
				{Name: "orderDate", Type: dommeta.TypeDate},
			},
			DocumentCount: 120,
		},
		{
			Name:          "customers",
			Fields:        []dommeta.Field{{Name: "_id", Type: dommeta.TypeObjectID}, {Name: "name", Type: dommeta.TypeString}},
			DocumentCount: 30,
		},
	}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

type harness struct {
	svc      *Service
	dispatch *fakeDispatcher
	catalog  *fakeCatalog
	ranker   *fakeRanker
	gen      *fakeGenerator
	obs      *countingObserver
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	gate := safety.New(nil)
	h := &harness{
		dispatch: &fakeDispatcher{gate: gate},
		catalog:  &fakeCatalog{snap: shopSnapshot()},
		ranker:   &fakeRanker{ready: true, selected: []ranker.Scored{{Name: "orders", Score: 0.8}}},
		gen:      &fakeGenerator{},
		obs:      &countingObserver{},
	}
	h.svc = New(gate, compiler.New(compiler.DefaultPolicy()), h.dispatch, h.catalog, h.ranker, h.gen, h.obs, cfg, zap.NewNop())
	return h
}
