package permissions

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"docbase/src/store"
)

// Overrides are caller-supplied predicates layered under the role and
// ACL checks. Each is optional; when present it is the authoritative
// last word for its operation. GetFilterByPermissions supplies an
// additional read predicate instead of a yes/no answer.
type Overrides struct {
	HasAddPermission       func(ctx context.Context, user User) (bool, error)
	HasUpdatePermission    func(ctx context.Context, user User, object primitive.ObjectID) (bool, error)
	HasDeletePermission    func(ctx context.Context, user User, object primitive.ObjectID) (bool, error)
	HasAdminPermission     func(ctx context.Context, user User, object primitive.ObjectID) (bool, error)
	GetFilterByPermissions func(ctx context.Context, user User) (bson.M, error)
}

// Resolver decides read/add/update/delete/admin eligibility for one
// document type. Checks run a fixed cascade: super-admin bypass, then
// role level, then per-object grants, then the fallback layer. Each
// step is consulted only on the previous step's negative outcome, and
// any collaborator error aborts the cascade immediately.
type Resolver struct {
	Table     string
	Grants    GrantStore          // nil: no ACL store configured
	Roles     RoleStore           // nil: role level is always none
	Docs      store.DocumentStore // used by the read fallback predicate test
	Overrides Overrides
	Logger    *zap.SugaredLogger
}

// CanRead decides whether the user may read one specific document.
func (r *Resolver) CanRead(ctx context.Context, user User, object primitive.ObjectID) (Decision, error) {
	if user.SuperAdmin {
		return granted("super admin"), nil
	}
	lvl, err := r.roleLevel(ctx, user)
	if err != nil {
		return Decision{}, err
	}
	if lvl >= LevelRead {
		return granted("role"), nil
	}
	if r.Grants != nil {
		olvl, err := r.objectLevel(ctx, user, object)
		if err != nil {
			return Decision{}, err
		}
		if olvl >= LevelRead {
			return granted("grant"), nil
		}
	}
	if r.Overrides.GetFilterByPermissions != nil {
		pred, err := r.Overrides.GetFilterByPermissions(ctx, user)
		if err != nil {
			return Decision{}, err
		}
		if pred != nil {
			match, err := r.matches(ctx, object, pred)
			if err != nil {
				return Decision{}, err
			}
			if match {
				return granted("filter"), nil
			}
			return denied("not permitted"), nil
		}
	}
	if r.Grants == nil {
		return granted("open"), nil
	}
	return denied("no role"), nil
}

// CanAdd decides add eligibility. Add has no target object yet, so the
// per-object layer never applies.
func (r *Resolver) CanAdd(ctx context.Context, user User) (Decision, error) {
	if user.SuperAdmin {
		return granted("super admin"), nil
	}
	lvl, err := r.roleLevel(ctx, user)
	if err != nil {
		return Decision{}, err
	}
	if lvl >= LevelAdd {
		return granted("role"), nil
	}
	if r.Overrides.HasAddPermission != nil {
		ok, err := r.Overrides.HasAddPermission(ctx, user)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return granted("override"), nil
		}
		return denied("not permitted"), nil
	}
	if r.Grants == nil {
		return granted("open"), nil
	}
	return denied("no role"), nil
}

func (r *Resolver) CanUpdate(ctx context.Context, user User, object primitive.ObjectID) (Decision, error) {
	return r.objectOp(ctx, user, object, LevelUpdate, r.Overrides.HasUpdatePermission)
}

func (r *Resolver) CanDelete(ctx context.Context, user User, object primitive.ObjectID) (Decision, error) {
	return r.objectOp(ctx, user, object, LevelDelete, r.Overrides.HasDeletePermission)
}

func (r *Resolver) CanAdmin(ctx context.Context, user User, object primitive.ObjectID) (Decision, error) {
	return r.objectOp(ctx, user, object, LevelAdmin, r.Overrides.HasAdminPermission)
}

func (r *Resolver) objectOp(ctx context.Context, user User, object primitive.ObjectID,
	required Level, override func(context.Context, User, primitive.ObjectID) (bool, error)) (Decision, error) {

	if user.SuperAdmin {
		return granted("super admin"), nil
	}
	lvl, err := r.roleLevel(ctx, user)
	if err != nil {
		return Decision{}, err
	}
	if lvl >= required {
		return granted("role"), nil
	}
	if r.Grants != nil {
		olvl, err := r.objectLevel(ctx, user, object)
		if err != nil {
			return Decision{}, err
		}
		if olvl >= required {
			return granted("grant"), nil
		}
	}
	if override != nil {
		ok, err := override(ctx, user, object)
		if err != nil {
			return Decision{}, err
		}
		if ok {
			return granted("override"), nil
		}
		return denied("not permitted"), nil
	}
	if r.Grants == nil {
		return granted("open"), nil
	}
	return denied("no role"), nil
}

// ReadQuery produces the predicate scoping collection reads for this
// user. nil means no restriction. When the role level does not already
// grant read, the caller-supplied filter and the ids of individually
// granted objects combine: both present ANDs them, ids alone becomes
// set membership on _id, a configured grant store with no grants and
// no filter yields a predicate matching nothing.
func (r *Resolver) ReadQuery(ctx context.Context, user User) (bson.M, error) {
	if user.SuperAdmin {
		return nil, nil
	}
	lvl, err := r.roleLevel(ctx, user)
	if err != nil {
		return nil, err
	}
	if lvl >= LevelRead {
		return nil, nil
	}

	var pred bson.M
	if r.Overrides.GetFilterByPermissions != nil {
		pred, err = r.Overrides.GetFilterByPermissions(ctx, user)
		if err != nil {
			return nil, err
		}
	}

	if r.Grants == nil {
		return pred, nil
	}

	ids, err := r.Grants.ObjectsFor(ctx, r.Table, user.ID)
	if err != nil {
		return nil, err
	}
	switch {
	case pred != nil && len(ids) > 0:
		return bson.M{"$and": []bson.M{pred, {"_id": bson.M{"$in": ids}}}}, nil
	case len(ids) > 0:
		return bson.M{"_id": bson.M{"$in": ids}}, nil
	case pred != nil:
		return pred, nil
	}
	return bson.M{"_id": bson.M{"$exists": false}}, nil
}

// roleLevel computes the user's maximum granted level for this table
// across all roles held.
func (r *Resolver) roleLevel(ctx context.Context, user User) (Level, error) {
	if r.Roles == nil || len(user.RoleIDs) == 0 {
		return LevelNone, nil
	}
	roles, err := r.Roles.RolesFor(ctx, user.RoleIDs, r.Table)
	if err != nil {
		return LevelNone, err
	}
	max := LevelNone
	for _, role := range roles {
		for _, sg := range role.Schemas {
			if sg.Name == r.Table && sg.Level > max {
				max = sg.Level
			}
		}
	}
	return max, nil
}

// objectLevel computes the highest level any grant gives this user on
// this specific object.
func (r *Resolver) objectLevel(ctx context.Context, user User, object primitive.ObjectID) (Level, error) {
	grants, err := r.Grants.GrantsFor(ctx, r.Table, user.ID, object)
	if err != nil {
		return LevelNone, err
	}
	max := LevelNone
	for _, g := range grants {
		if g.Level > max {
			max = g.Level
		}
	}
	return max, nil
}

// matches tests whether the object satisfies the additional predicate.
func (r *Resolver) matches(ctx context.Context, object primitive.ObjectID, pred bson.M) (bool, error) {
	if r.Docs == nil {
		return false, nil
	}
	filter := bson.M{"$and": []bson.M{{"_id": object}, pred}}
	_, err := r.Docs.FindOne(ctx, filter)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
