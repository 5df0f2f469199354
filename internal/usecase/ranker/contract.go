package ranker

import (
	"context"

	"github.com/kailas-cloud/docquery/internal/domain/metadata"
)

// IndexStore persists the embedding index between runs.
type IndexStore interface {
	Load(ctx context.Context) (*metadata.EmbeddingIndex, error)
	Save(ctx context.Context, ix *metadata.EmbeddingIndex) error
}
