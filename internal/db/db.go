package db

import (
	"context"
	"time"
)

// DocumentStore is the facade over the queried document database.
type DocumentStore interface {
	Pinger
	CollectionReader
	QueryRunner
	Close(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Element is one key/value pair of an ordered document.
type Element struct {
	Key   string
	Value any
}

// OrderedDocument keeps field order as stored.
type OrderedDocument []Element

// CollectionReader exposes the introspection needed to build metadata.
type CollectionReader interface {
	ListCollections(ctx context.Context) ([]string, error)
	EstimatedCount(ctx context.Context, collection string) (int64, error)
	// SampleDocument returns one document, or nil when the collection is empty.
	SampleDocument(ctx context.Context, collection string) (OrderedDocument, error)
	ListIndexes(ctx context.Context, collection string) ([]string, error)
}

// QueryRunner executes read commands. Returned documents carry driver-native values.
type QueryRunner interface {
	Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]map[string]any, error)
	Aggregate(ctx context.Context, collection string, pipeline []map[string]any, limit int) ([]map[string]any, error)
	CountDocuments(ctx context.Context, collection string, filter map[string]any) (int64, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a KV store with connection lifecycle.
type Cache interface {
	Pinger
	KVStore
	Close()
}
