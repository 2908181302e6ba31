package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore adapts one mongo collection to the DocumentStore
// interface.
type MongoStore struct {
	coll   *mongo.Collection
	logger *zap.SugaredLogger
}

func NewMongoStore(coll *mongo.Collection, logger *zap.SugaredLogger) *MongoStore {
	return &MongoStore{coll: coll, logger: logger}
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, error) {
	return s.FindOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding document in %s: %w", s.coll.Name(), err)
	}
	return doc, nil
}

func (s *MongoStore) Find(ctx context.Context, filter bson.M) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.coll.Name(), err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading cursor for %s: %w", s.coll.Name(), err)
	}
	return docs, nil
}

func (s *MongoStore) Aggregate(ctx context.Context, stages []bson.M) ([]bson.M, error) {
	pipeline := make(mongo.Pipeline, 0, len(stages))
	for _, stage := range stages {
		var d bson.D
		for k, v := range stage {
			d = append(d, bson.E{Key: k, Value: v})
		}
		pipeline = append(pipeline, d)
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", s.coll.Name(), err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("reading cursor for %s: %w", s.coll.Name(), err)
	}
	return docs, nil
}

// Save inserts the document, or replaces it when it already carries an
// _id (upserting so callers can choose their own ids).
func (s *MongoStore) Save(ctx context.Context, doc bson.M) (primitive.ObjectID, error) {
	if id, ok := doc["_id"].(primitive.ObjectID); ok {
		opts := options.Replace().SetUpsert(true)
		if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
			return primitive.NilObjectID, fmt.Errorf("saving document in %s: %w", s.coll.Name(), err)
		}
		return id, nil
	}
	id := primitive.NewObjectID()
	doc["_id"] = id
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, fmt.Errorf("inserting document in %s: %w", s.coll.Name(), err)
	}
	return id, nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting document in %s: %w", s.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
