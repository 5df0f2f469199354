// Package metadata builds and publishes the collection snapshot.
package metadata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/domain"
	dommeta "github.com/kailas-cloud/docquery/internal/domain/metadata"
)

const systemPrefix = "system."

// Service owns the current snapshot. Refresh is single-writer; Snapshot
// never blocks on it.
type Service struct {
	store   Store
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
	current atomic.Pointer[dommeta.Snapshot]
}

// New creates a Service with an empty snapshot.
func New(store Store, logger *zap.Logger) *Service {
	s := &Service{store: store, logger: logger, now: time.Now}
	s.current.Store(dommeta.NewSnapshot(nil, time.Time{}))
	return s
}

// Snapshot returns the last published snapshot.
func (s *Service) Snapshot() *dommeta.Snapshot {
	return s.current.Load()
}

// Refresh rebuilds the snapshot from the live store and publishes it.
// Per-collection failures omit that collection; only a failed listing
// aborts the refresh.
func (s *Service) Refresh(ctx context.Context) (*dommeta.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w: %w", domain.ErrStoreUnavailable, err)
	}

	cols := make([]dommeta.CollectionMetadata, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, systemPrefix) {
			continue
		}
		col, err := s.describe(ctx, name)
		if err != nil {
			s.logger.Warn("Skipping collection",
				zap.String("collection", name),
				zap.Error(err),
			)
			continue
		}
		cols = append(cols, col)
	}

	snap := dommeta.NewSnapshot(cols, s.now())
	s.current.Store(snap)
	s.logger.Info("Metadata refreshed",
		zap.Int("collections", snap.Len()),
		zap.Int("skipped", len(names)-snap.Len()),
	)
	return snap, nil
}

func (s *Service) describe(ctx context.Context, name string) (dommeta.CollectionMetadata, error) {
	count, err := s.store.EstimatedCount(ctx, name)
	if err != nil {
		return dommeta.CollectionMetadata{}, fmt.Errorf("count: %w", err)
	}
	fields, err := s.SampleFields(ctx, name)
	if err != nil {
		return dommeta.CollectionMetadata{}, err
	}
	indexes, err := s.store.ListIndexes(ctx, name)
	if err != nil {
		s.logger.Debug("Index listing failed", zap.String("collection", name), zap.Error(err))
		indexes = []string{}
	}
	return dommeta.CollectionMetadata{
		Name:          name,
		Fields:        fields,
		DocumentCount: count,
		Indexes:       indexes,
	}, nil
}

// SampleFields reads one live document and describes its top-level fields
// in document order. An empty collection yields no fields.
func (s *Service) SampleFields(ctx context.Context, collection string) ([]dommeta.Field, error) {
	doc, err := s.store.SampleDocument(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", collection, err)
	}
	return describeFields(doc), nil
}

func describeFields(doc db.OrderedDocument) []dommeta.Field {
	fields := make([]dommeta.Field, 0, len(doc))
	for _, e := range doc {
		fields = append(fields, dommeta.Field{
			Name:   e.Key,
			Type:   dommeta.InferType(e.Value),
			Sample: dommeta.SampleString(e.Value),
		})
	}
	return fields
}
