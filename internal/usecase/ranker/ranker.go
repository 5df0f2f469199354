// Package ranker narrows the collections shown to the language model by
// embedding similarity.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/domain/metadata"
)

// Policy thresholds for context selection.
type Policy struct {
	TopK        int
	FieldTopK   int
	MinTopScore float64
	MinScore    float64
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{TopK: 3, FieldTopK: 3, MinTopScore: 0.3, MinScore: 0.2}
}

// Ranker owns the embedding index. Build is single-writer; readers use the
// last published index.
type Ranker struct {
	embedder  domain.Embedder
	questions domain.Embedder
	store     IndexStore
	policy    Policy
	model     string
	logger    *zap.Logger

	mu    sync.Mutex
	index atomic.Pointer[metadata.EmbeddingIndex]
}

// New creates a Ranker. store can be nil to disable persistence.
func New(embedder domain.Embedder, store IndexStore, policy Policy, model string, logger *zap.Logger) *Ranker {
	if policy.TopK <= 0 {
		policy.TopK = DefaultPolicy().TopK
	}
	if policy.FieldTopK <= 0 {
		policy.FieldTopK = DefaultPolicy().FieldTopK
	}
	return &Ranker{
		embedder:  embedder,
		questions: embedder,
		store:     store,
		policy:    policy,
		model:     model,
		logger:    logger,
	}
}

// WithQueryInstruction prepends instruction to questions only. Metadata
// texts are embedded as is. An empty instruction is a no-op.
func (r *Ranker) WithQueryInstruction(instruction string) *Ranker {
	if instruction != "" {
		r.questions = domain.NewInstructionEmbedder(r.embedder, instruction)
	}
	return r
}

// Policy returns the thresholds in effect.
func (r *Ranker) Policy() Policy { return r.policy }

// Index returns the published index, nil before Load or Build.
func (r *Ranker) Index() *metadata.EmbeddingIndex {
	return r.index.Load()
}

// Ready reports whether an index is published.
func (r *Ranker) Ready() bool {
	return r.index.Load() != nil
}

// Load publishes the persisted index. It returns false when there is none,
// or when it was built with a different model.
func (r *Ranker) Load(ctx context.Context) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	ix, err := r.store.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load embedding index: %w", err)
	}
	if ix.Model != r.model {
		r.logger.Info("Embedding index model changed, ignoring persisted index",
			zap.String("stored", ix.Model),
			zap.String("configured", r.model),
		)
		return false, nil
	}
	r.index.Store(ix)
	return true, nil
}

// Build embeds every collection description and field of snap, publishes
// the index and persists it. A persistence failure is logged, not returned.
func (r *Ranker) Build(ctx context.Context, snap *metadata.Snapshot) (*metadata.EmbeddingIndex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cols := snap.Collections()
	var texts []string
	for _, c := range cols {
		texts = append(texts, CollectionText(c))
		for _, f := range c.Fields {
			texts = append(texts, FieldText(f))
		}
	}

	res, err := domain.EmbedAll(ctx, r.embedder, texts)
	if err != nil {
		return nil, fmt.Errorf("embed metadata: %w", err)
	}

	ix := &metadata.EmbeddingIndex{Model: r.model, Collections: make([]metadata.CollectionVector, 0, len(cols))}
	i := 0
	for _, c := range cols {
		cv := metadata.CollectionVector{Name: c.Name, Vector: res.Embeddings[i], Fields: make([]metadata.FieldVector, 0, len(c.Fields))}
		i++
		for _, f := range c.Fields {
			cv.Fields = append(cv.Fields, metadata.FieldVector{Name: f.Name, Vector: res.Embeddings[i]})
			i++
		}
		ix.Collections = append(ix.Collections, cv)
	}

	r.index.Store(ix)
	if r.store != nil {
		if err := r.store.Save(ctx, ix); err != nil {
			r.logger.Warn("Failed to persist embedding index", zap.Error(err))
		}
	}
	r.logger.Info("Embedding index built",
		zap.Int("collections", len(ix.Collections)),
		zap.Int("vectors", len(texts)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return ix, nil
}

// EmbedQuestion returns the question vector.
func (r *Ranker) EmbedQuestion(ctx context.Context, question string) ([]float32, error) {
	res, err := r.questions.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return res.Embedding, nil
}

// SelectContext ranks collections for the question and applies the policy:
// a top score under MinTopScore is domain.ErrNoRelevantCollection; entries
// under MinScore are dropped. Each kept entry carries its top fields.
func (r *Ranker) SelectContext(ctx context.Context, question string) ([]Scored, error) {
	ix := r.index.Load()
	if ix == nil || ix.Len() == 0 {
		return nil, fmt.Errorf("embedding index is empty: %w", domain.ErrNoRelevantCollection)
	}
	q, err := r.EmbedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}
	selected, err := r.Select(RankCollections(ix, q, r.policy.TopK))
	if err != nil {
		return nil, err
	}
	for i := range selected {
		selected[i].Fields = RankFields(ix, selected[i].Name, q, r.policy.FieldTopK)
	}
	return selected, nil
}

// Select applies the thresholds to an already ranked list.
func (r *Ranker) Select(ranked []Scored) ([]Scored, error) {
	if len(ranked) == 0 || ranked[0].Score < r.policy.MinTopScore {
		return nil, domain.ErrNoRelevantCollection
	}
	out := make([]Scored, 0, len(ranked))
	for _, s := range ranked {
		if s.Score < r.policy.MinScore {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// RankFields ranks fields of one collection against a question vector.
func (r *Ranker) RankFields(q []float32, collection string) []Scored {
	return RankFields(r.index.Load(), collection, q, r.policy.FieldTopK)
}

// CollectionText is the embedded sentence for a collection.
func CollectionText(c metadata.CollectionMetadata) string {
	return c.Name + ": " + c.Description()
}

// FieldText is the embedded sentence for a field.
func FieldText(f metadata.Field) string {
	return f.Name + ": " + string(f.Type)
}
