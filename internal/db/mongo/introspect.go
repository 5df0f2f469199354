package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/docquery/internal/db"
)

// ListCollections returns collection names in server order.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, &db.Error{Op: db.OpListCollections, Err: err}
	}
	return names, nil
}

// EstimatedCount returns the collection's estimated document count.
func (s *Store) EstimatedCount(ctx context.Context, collection string) (int64, error) {
	n, err := s.coll(collection).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, &db.Error{Op: db.OpEstimatedCount, Err: err}
	}
	return n, nil
}

// SampleDocument returns the first document in natural order, or nil for an empty collection.
func (s *Store) SampleDocument(ctx context.Context, collection string) (db.OrderedDocument, error) {
	var raw bson.D
	err := s.coll(collection).FindOne(ctx, bson.D{}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpSample, Err: err}
	}
	doc := make(db.OrderedDocument, 0, len(raw))
	for _, e := range raw {
		doc = append(doc, db.Element{Key: e.Key, Value: e.Value})
	}
	return doc, nil
}

// ListIndexes returns index names for a collection.
func (s *Store) ListIndexes(ctx context.Context, collection string) ([]string, error) {
	cur, err := s.coll(collection).Indexes().List(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpListIndexes, Err: err}
	}
	defer cur.Close(ctx)

	var specs []bson.M
	if err := cur.All(ctx, &specs); err != nil {
		return nil, &db.Error{Op: db.OpListIndexes, Err: err}
	}
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		if name, ok := spec["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
