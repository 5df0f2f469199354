package assistant

import (
	"context"

	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
	"github.com/kailas-cloud/docquery/internal/domain/query"
	"github.com/kailas-cloud/docquery/internal/usecase/ranker"
)

// QuestionGate rejects questions that ask for modifications.
type QuestionGate interface {
	CheckQuestion(question string) error
}

// Compiler is the deterministic rule engine.
type Compiler interface {
	Compile(question string, snap *dommeta.Snapshot) query.Compiled
	CustomerJoin(question string) (query.Compiled, bool)
}

// Dispatcher runs a command against the store.
type Dispatcher interface {
	Execute(ctx context.Context, cmd query.Command) (query.ExecutionResult, error)
}

// Catalog owns the metadata snapshot.
type Catalog interface {
	Snapshot() *dommeta.Snapshot
	Refresh(ctx context.Context) (*dommeta.Snapshot, error)
	SampleFields(ctx context.Context, collection string) ([]dommeta.Field, error)
}

// Ranker selects the collections shown to the model.
type Ranker interface {
	Ready() bool
	SelectContext(ctx context.Context, question string) ([]ranker.Scored, error)
	Build(ctx context.Context, snap *dommeta.Snapshot) (*dommeta.EmbeddingIndex, error)
}

// Observer records pipeline outcomes. Nil-safe at the call sites.
type Observer interface {
	ObserveDecode(stage string)
	ObserveIntent(intent string)
	ObserveAnswer(source, outcome string)
}
