package permissions

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// GrantStore is the per-object ACL collaborator. A nil GrantStore on
// the resolver means no ACL store is configured at all, which changes
// the cascade's defaults.
type GrantStore interface {
	// GrantsFor returns every grant this user holds on this object.
	GrantsFor(ctx context.Context, table string, user, object primitive.ObjectID) ([]Grant, error)

	// ObjectsFor returns the ids of every object of the table the user
	// holds any grant on.
	ObjectsFor(ctx context.Context, table string, user primitive.ObjectID) ([]primitive.ObjectID, error)

	// Grant records a new grant.
	Grant(ctx context.Context, g Grant) (primitive.ObjectID, error)

	// Revoke removes one user's grants on one object.
	Revoke(ctx context.Context, table string, user, object primitive.ObjectID) error

	// RevokeObject removes every grant on an object; called when the
	// owning document is deleted.
	RevokeObject(ctx context.Context, table string, object primitive.ObjectID) error
}

// RoleStore resolves role documents for a user's role ids, scoped to
// one table name.
type RoleStore interface {
	RolesFor(ctx context.Context, roleIDs []primitive.ObjectID, table string) ([]Role, error)
}

// MongoGrantStore keeps grants in a mongo collection.
type MongoGrantStore struct {
	coll   *mongo.Collection
	logger *zap.SugaredLogger
}

func NewMongoGrantStore(coll *mongo.Collection, logger *zap.SugaredLogger) *MongoGrantStore {
	return &MongoGrantStore{coll: coll, logger: logger}
}

func (s *MongoGrantStore) GrantsFor(ctx context.Context, table string, user, object primitive.ObjectID) ([]Grant, error) {
	return s.find(ctx, bson.M{"table": table, "user": user, "object": object})
}

func (s *MongoGrantStore) ObjectsFor(ctx context.Context, table string, user primitive.ObjectID) ([]primitive.ObjectID, error) {
	grants, err := s.find(ctx, bson.M{"table": table, "user": user})
	if err != nil {
		return nil, err
	}
	seen := make(map[primitive.ObjectID]struct{}, len(grants))
	ids := make([]primitive.ObjectID, 0, len(grants))
	for _, g := range grants {
		if _, dup := seen[g.Object]; dup {
			continue
		}
		seen[g.Object] = struct{}{}
		ids = append(ids, g.Object)
	}
	return ids, nil
}

func (s *MongoGrantStore) Grant(ctx context.Context, g Grant) (primitive.ObjectID, error) {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, g); err != nil {
		return primitive.NilObjectID, fmt.Errorf("recording grant: %w", err)
	}
	s.logger.Infow("granted", "table", g.Table, "user", g.User.Hex(),
		"object", g.Object.Hex(), "level", g.Level.String())
	return g.ID, nil
}

func (s *MongoGrantStore) Revoke(ctx context.Context, table string, user, object primitive.ObjectID) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"table": table, "user": user, "object": object}); err != nil {
		return fmt.Errorf("revoking grants: %w", err)
	}
	return nil
}

func (s *MongoGrantStore) RevokeObject(ctx context.Context, table string, object primitive.ObjectID) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"table": table, "object": object}); err != nil {
		return fmt.Errorf("revoking object grants: %w", err)
	}
	return nil
}

func (s *MongoGrantStore) find(ctx context.Context, filter bson.M) ([]Grant, error) {
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying grants: %w", err)
	}
	var grants []Grant
	if err := cursor.All(ctx, &grants); err != nil {
		return nil, fmt.Errorf("reading grants: %w", err)
	}
	return grants, nil
}

// MongoRoleStore keeps roles in a mongo collection.
type MongoRoleStore struct {
	coll   *mongo.Collection
	logger *zap.SugaredLogger
}

func NewMongoRoleStore(coll *mongo.Collection, logger *zap.SugaredLogger) *MongoRoleStore {
	return &MongoRoleStore{coll: coll, logger: logger}
}

func (s *MongoRoleStore) RolesFor(ctx context.Context, roleIDs []primitive.ObjectID, table string) ([]Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	set := make([]interface{}, 0, len(roleIDs))
	for _, id := range roleIDs {
		set = append(set, id)
	}
	filter := bson.M{"_id": bson.M{"$in": set}, "schemas.name": table}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("querying roles: %w", err)
	}
	var roles []Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("reading roles: %w", err)
	}
	return roles, nil
}
