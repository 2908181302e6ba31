package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a lookup by id or predicate matches no
// document.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the persistence collaborator the core compiles
// plans for. Implementations are error-first and context-aware; the
// core never retries a failed call.
type DocumentStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	Find(ctx context.Context, filter bson.M) ([]bson.M, error)
	Aggregate(ctx context.Context, stages []bson.M) ([]bson.M, error)
	Save(ctx context.Context, doc bson.M) (primitive.ObjectID, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}
