package ranker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/domain/metadata"
)

// keywordEmbedder maps text to a 3-dim vector by keyword, so similarity is predictable.
type keywordEmbedder struct {
	calls int
	last  string
	err   error
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	k.calls++
	k.last = text
	if k.err != nil {
		return domain.EmbeddingResult{}, k.err
	}
	t := strings.ToLower(text)
	v := []float32{0, 0, 0}
	if strings.Contains(t, "order") || strings.Contains(t, "sales") {
		v[0] = 1
	}
	if strings.Contains(t, "customer") {
		v[1] = 1
	}
	if strings.Contains(t, "weather") {
		v[2] = 1
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}

type memoryIndexStore struct {
	saved   *metadata.EmbeddingIndex
	loadErr error
	saveErr error
}

func (m *memoryIndexStore) Load(_ context.Context) (*metadata.EmbeddingIndex, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.saved == nil {
		return nil, domain.ErrNotFound
	}
	return m.saved, nil
}

func (m *memoryIndexStore) Save(_ context.Context, ix *metadata.EmbeddingIndex) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = ix
	return nil
}

var errBoom = errors.New("boom")

func shopSnapshot() *metadata.Snapshot {
	return metadata.NewSnapshot([]metadata.CollectionMetadata{
		{Name: "orders", Fields: []metadata.Field{
			{Name: "status", Type: metadata.TypeString},
			{Name: "customerId", Type: metadata.TypeObjectID},
		}, DocumentCount: 10},
		{Name: "customers", Fields: []metadata.Field{
			{Name: "name", Type: metadata.TypeString},
		}, DocumentCount: 3},
	}, time.Now())
}
