package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/docquery/internal/db"
)

// Find runs a filtered find with a hard limit.
func (s *Store) Find(ctx context.Context, collection string, filter map[string]any, limit int64) ([]map[string]any, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.coll(collection).Find(ctx, filterOrEmpty(filter), opts)
	if err != nil {
		return nil, &db.Error{Op: db.OpFind, Err: err}
	}
	docs, err := drain(ctx, cur, int(limit))
	if err != nil {
		return nil, &db.Error{Op: db.OpFind, Err: err}
	}
	return docs, nil
}

// Aggregate runs a pipeline and reads at most limit results.
func (s *Store) Aggregate(ctx context.Context, collection string, pipeline []map[string]any, limit int) ([]map[string]any, error) {
	stages := make(bson.A, 0, len(pipeline))
	for i, st := range pipeline {
		if len(st) == 0 {
			return nil, &db.Error{Op: db.OpAggregate, Err: fmt.Errorf("stage %d: %w", i, db.ErrInvalidArgument)}
		}
		stages = append(stages, st)
	}
	cur, err := s.coll(collection).Aggregate(ctx, stages)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	docs, err := drain(ctx, cur, limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpAggregate, Err: err}
	}
	return docs, nil
}

// CountDocuments counts documents matching filter.
func (s *Store) CountDocuments(ctx context.Context, collection string, filter map[string]any) (int64, error) {
	n, err := s.coll(collection).CountDocuments(ctx, filterOrEmpty(filter))
	if err != nil {
		return 0, &db.Error{Op: db.OpCountDocuments, Err: err}
	}
	return n, nil
}

// drain decodes up to limit documents (all when limit <= 0) and closes the cursor.
func drain(ctx context.Context, cur *mongo.Cursor, limit int) ([]map[string]any, error) {
	defer cur.Close(ctx)

	docs := make([]map[string]any, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		docs = append(docs, map[string]any(doc))
		if limit > 0 && len(docs) >= limit {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
