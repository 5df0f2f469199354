package metadata

import (
	"context"

	"github.com/kailas-cloud/docquery/internal/db"
)

// Store is the introspection surface of the document database.
type Store interface {
	ListCollections(ctx context.Context) ([]string, error)
	EstimatedCount(ctx context.Context, collection string) (int64, error)
	SampleDocument(ctx context.Context, collection string) (db.OrderedDocument, error)
	ListIndexes(ctx context.Context, collection string) ([]string, error)
}
