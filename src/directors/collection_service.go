package directors

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"docbase/src/permissions"
	"docbase/src/query"
	"docbase/src/registry"
)

// ErrDenied wraps a decisive negative permission outcome so the route
// layer can distinguish it from collaborator failures.
var ErrDenied = errors.New("permission denied")

// CollectionService exposes one registered document type as a
// filterable, permission-gated collection. It glues the permission
// resolver, the query compiler and the document store together.
type CollectionService struct {
	model    *registry.InfoModel
	compiler *query.Compiler
	perms    *permissions.Resolver
	logger   *zap.SugaredLogger
}

func NewCollectionService(model *registry.InfoModel, compiler *query.Compiler,
	perms *permissions.Resolver, logger *zap.SugaredLogger) *CollectionService {
	return &CollectionService{
		model:    model,
		compiler: compiler,
		perms:    perms,
		logger:   logger,
	}
}

// TypeName returns the registered type this service serves.
func (s *CollectionService) TypeName() string {
	return s.model.TypeName
}

// Search compiles the filter under the user's read scope and runs it.
// A plan with shadow stages goes through the aggregation path, plain
// matches through find.
func (s *CollectionService) Search(ctx context.Context, user permissions.User,
	filter map[string]interface{}) ([]bson.M, error) {

	scope, err := s.perms.ReadQuery(ctx, user)
	if err != nil {
		return nil, err
	}
	plan, err := s.compiler.Compile(ctx, filter, scope)
	if err != nil {
		return nil, err
	}
	if plan.Pipeline != nil {
		return s.model.Store.Aggregate(ctx, plan.Pipeline)
	}
	return s.model.Store.Find(ctx, plan.Match)
}

// Get reads one document after a per-document read check.
func (s *CollectionService) Get(ctx context.Context, user permissions.User,
	id primitive.ObjectID) (bson.M, error) {

	d, err := s.perms.CanRead(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if !d.Granted {
		return nil, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	return s.model.Store.FindByID(ctx, id)
}

// Add inserts a document after an add check.
func (s *CollectionService) Add(ctx context.Context, user permissions.User,
	doc bson.M) (primitive.ObjectID, error) {

	d, err := s.perms.CanAdd(ctx, user)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !d.Granted {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	return s.model.Store.Save(ctx, doc)
}

// Update replaces a document after an update check.
func (s *CollectionService) Update(ctx context.Context, user permissions.User,
	id primitive.ObjectID, doc bson.M) error {

	d, err := s.perms.CanUpdate(ctx, user, id)
	if err != nil {
		return err
	}
	if !d.Granted {
		return fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	doc["_id"] = id
	_, err = s.model.Store.Save(ctx, doc)
	return err
}

// Remove deletes a document after a delete check and cascades the
// revocation of every grant held on it.
func (s *CollectionService) Remove(ctx context.Context, user permissions.User,
	id primitive.ObjectID) error {

	d, err := s.perms.CanDelete(ctx, user, id)
	if err != nil {
		return err
	}
	if !d.Granted {
		return fmt.Errorf("%w: %s", ErrDenied, d.Reason)
	}
	if err := s.model.Store.Delete(ctx, id); err != nil {
		return err
	}
	if s.perms.Grants != nil {
		if err := s.perms.Grants.RevokeObject(ctx, s.model.TypeName, id); err != nil {
			return fmt.Errorf("cascading grant revocation for %s: %w", id.Hex(), err)
		}
	}
	return nil
}
