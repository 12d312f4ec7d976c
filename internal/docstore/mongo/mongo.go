// Package mongo stores tracker documents in a single MongoDB collection,
// one record per (user, collection, document id).
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"lifedash/internal/docstore"
)

const documentsCollection = "documents"

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri, verifies the connection and ensures indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	s := &Store{client: client, coll: client.Database(database).Collection(documentsCollection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "collection", Value: 1}}},
		{Keys: bson.D{{Key: "lastUpdated", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func documentID(ref docstore.Ref) string {
	return ref.UserID + "/" + ref.Collection + "/" + ref.DocID
}

type record struct {
	Fields      bson.Raw  `bson:"fields"`
	LastUpdated time.Time `bson:"lastUpdated"`
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (docstore.Document, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": documentID(ref)}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return toDocument(rec)
}

// Set merges each top-level field into the stored record and stamps lastUpdated
// with the server clock.
func (s *Store) Set(ctx context.Context, ref docstore.Ref, doc docstore.Document) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	set := bson.M{
		"user":       ref.UserID,
		"collection": ref.Collection,
		"docId":      ref.DocID,
	}
	for k, v := range doc.Fields() {
		set["fields."+k] = v
	}
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"lastUpdated": true},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": documentID(ref)}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set %s: %w", ref, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID, collection string) ([]docstore.Document, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"user": userID, "collection": collection},
		options.Find().SetSort(bson.D{{Key: "docId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	var recs []record
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	out := make([]docstore.Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := toDocument(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// toDocument converts stored BSON fields to plain JSON value shapes
// (float64, string, bool, []any, map[string]any).
func toDocument(rec record) (docstore.Document, error) {
	doc := docstore.Document{}
	if len(rec.Fields) > 0 {
		raw, err := bson.MarshalExtJSON(rec.Fields, false, false)
		if err != nil {
			return nil, fmt.Errorf("convert fields: %w", err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	doc[docstore.FieldLastUpdated] = rec.LastUpdated
	return doc, nil
}
