package dispatch

import (
	"context"
	"time"
)

// Store executes read commands against the document database.
type Store interface {
	Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]map[string]any, error)
	Aggregate(ctx context.Context, collection string, pipeline []map[string]any, limit int) ([]map[string]any, error)
	CountDocuments(ctx context.Context, collection string, filter map[string]any) (int64, error)
}

// Gate rejects arguments carrying mutating operators.
type Gate interface {
	CheckArgument(arg any) error
}

// Observer receives one call per dispatched command. status is "ok", "error" or "rejected".
type Observer interface {
	ObserveQuery(operation, status string, elapsed time.Duration)
}
