package permissions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"docbase/src/store"
)

type fakeGrants struct {
	grants     []Grant
	objects    []primitive.ObjectID
	err        error
	grantsAsks int
	objectAsks int
}

func (f *fakeGrants) GrantsFor(_ context.Context, _ string, _, _ primitive.ObjectID) ([]Grant, error) {
	f.grantsAsks++
	return f.grants, f.err
}

func (f *fakeGrants) ObjectsFor(_ context.Context, _ string, _ primitive.ObjectID) ([]primitive.ObjectID, error) {
	f.objectAsks++
	return f.objects, f.err
}

func (f *fakeGrants) Grant(_ context.Context, g Grant) (primitive.ObjectID, error) {
	return g.ID, f.err
}

func (f *fakeGrants) Revoke(_ context.Context, _ string, _, _ primitive.ObjectID) error {
	return f.err
}

func (f *fakeGrants) RevokeObject(_ context.Context, _ string, _ primitive.ObjectID) error {
	return f.err
}

type fakeRoles struct {
	roles []Role
	err   error
	asks  int
}

func (f *fakeRoles) RolesFor(_ context.Context, _ []primitive.ObjectID, _ string) ([]Role, error) {
	f.asks++
	return f.roles, f.err
}

type fakeDocs struct {
	doc bson.M
	err error
}

func (f *fakeDocs) FindByID(_ context.Context, _ primitive.ObjectID) (bson.M, error) {
	return f.doc, f.err
}
func (f *fakeDocs) FindOne(_ context.Context, _ bson.M) (bson.M, error) { return f.doc, f.err }
func (f *fakeDocs) Find(_ context.Context, _ bson.M) ([]bson.M, error)  { return nil, f.err }
func (f *fakeDocs) Aggregate(_ context.Context, _ []bson.M) ([]bson.M, error) {
	return nil, f.err
}
func (f *fakeDocs) Save(_ context.Context, _ bson.M) (primitive.ObjectID, error) {
	return primitive.NilObjectID, f.err
}
func (f *fakeDocs) Delete(_ context.Context, _ primitive.ObjectID) error { return f.err }

func roleWith(table string, level Level) []Role {
	return []Role{{
		ID:      primitive.NewObjectID(),
		Name:    "test-role",
		Schemas: []SchemaGrant{{Name: table, Level: level}},
	}}
}

func testUser() User {
	return User{ID: primitive.NewObjectID(), RoleIDs: []primitive.ObjectID{primitive.NewObjectID()}}
}

func newResolver(grants GrantStore, roles RoleStore, docs store.DocumentStore, ov Overrides) *Resolver {
	return &Resolver{
		Table:     "person",
		Grants:    grants,
		Roles:     roles,
		Docs:      docs,
		Overrides: ov,
		Logger:    zap.NewNop().Sugar(),
	}
}

func TestRoleLevelShortCircuitsACL(t *testing.T) {
	grants := &fakeGrants{}
	roles := &fakeRoles{roles: roleWith("person", LevelUpdate)}
	r := newResolver(grants, roles, nil, Overrides{})

	d, err := r.CanUpdate(context.Background(), testUser(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Equal(t, "role", d.Reason)
	assert.Zero(t, grants.grantsAsks, "a sufficient role level must not trigger an ACL lookup")
}

func TestRoleLevelIsMaxAcrossRoles(t *testing.T) {
	roles := &fakeRoles{roles: []Role{
		{Name: "low", Schemas: []SchemaGrant{{Name: "person", Level: LevelAdd}}},
		{Name: "high", Schemas: []SchemaGrant{{Name: "person", Level: LevelDelete}}},
		{Name: "other", Schemas: []SchemaGrant{{Name: "company", Level: LevelAdmin}}},
	}}
	r := newResolver(&fakeGrants{}, roles, nil, Overrides{})

	d, err := r.CanDelete(context.Background(), testUser(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.True(t, d.Granted)

	d, err = r.CanAdmin(context.Background(), testUser(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, d.Granted, "admin on another type must not leak")
}

func TestObjectGrantFallback(t *testing.T) {
	user := testUser()
	object := primitive.NewObjectID()
	grants := &fakeGrants{grants: []Grant{
		{Table: "person", Object: object, User: user.ID, Level: LevelRead},
	}}
	r := newResolver(grants, &fakeRoles{}, nil, Overrides{})

	d, err := r.CanRead(context.Background(), user, object)
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Equal(t, "grant", d.Reason)

	// The same grant is below the update threshold.
	d, err = r.CanUpdate(context.Background(), user, object)
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, "no role", d.Reason)
}

func TestSuperAdminBypassesEverything(t *testing.T) {
	grants := &fakeGrants{err: errors.New("should not be called")}
	roles := &fakeRoles{err: errors.New("should not be called")}
	r := newResolver(grants, roles, nil, Overrides{})

	d, err := r.CanAdmin(context.Background(), User{SuperAdmin: true}, primitive.NewObjectID())
	require.NoError(t, err)
	assert.True(t, d.Granted)
	assert.Zero(t, roles.asks)
	assert.Zero(t, grants.grantsAsks)
}

func TestReadFallbackPredicate(t *testing.T) {
	user := testUser()
	object := primitive.NewObjectID()
	pred := bson.M{"string": "x"}
	ov := Overrides{
		GetFilterByPermissions: func(context.Context, User) (bson.M, error) {
			return pred, nil
		},
	}

	t.Run("ObjectSatisfiesPredicate", func(t *testing.T) {
		docs := &fakeDocs{doc: bson.M{"_id": object}}
		r := newResolver(&fakeGrants{}, &fakeRoles{}, docs, ov)
		d, err := r.CanRead(context.Background(), user, object)
		require.NoError(t, err)
		assert.True(t, d.Granted)
		assert.Equal(t, "filter", d.Reason)
	})

	t.Run("ObjectOutsidePredicate", func(t *testing.T) {
		docs := &fakeDocs{err: store.ErrNotFound}
		r := newResolver(&fakeGrants{}, &fakeRoles{}, docs, ov)
		d, err := r.CanRead(context.Background(), user, object)
		require.NoError(t, err)
		assert.False(t, d.Granted)
	})
}

func TestOpenByDefaultWithoutGrantStore(t *testing.T) {
	r := newResolver(nil, nil, nil, Overrides{})
	user := User{ID: primitive.NewObjectID()}

	for _, check := range []func() (Decision, error){
		func() (Decision, error) { return r.CanRead(context.Background(), user, primitive.NewObjectID()) },
		func() (Decision, error) { return r.CanAdd(context.Background(), user) },
		func() (Decision, error) {
			return r.CanUpdate(context.Background(), user, primitive.NewObjectID())
		},
		func() (Decision, error) {
			return r.CanDelete(context.Background(), user, primitive.NewObjectID())
		},
	} {
		d, err := check()
		require.NoError(t, err)
		assert.True(t, d.Granted)
		assert.Equal(t, "open", d.Reason)
	}
}

func TestOverrideIsAuthoritative(t *testing.T) {
	ov := Overrides{
		HasUpdatePermission: func(context.Context, User, primitive.ObjectID) (bool, error) {
			return false, nil
		},
	}
	r := newResolver(nil, nil, nil, ov)

	d, err := r.CanUpdate(context.Background(), User{ID: primitive.NewObjectID()}, primitive.NewObjectID())
	require.NoError(t, err)
	assert.False(t, d.Granted, "a supplied override decides even without a grant store")
}

func TestDenyWithGrantStoreAndNoRole(t *testing.T) {
	r := newResolver(&fakeGrants{}, &fakeRoles{}, nil, Overrides{})

	d, err := r.CanAdd(context.Background(), testUser())
	require.NoError(t, err)
	assert.False(t, d.Granted)
	assert.Equal(t, "no role", d.Reason)
}

func TestCollaboratorErrorsAbort(t *testing.T) {
	boom := errors.New("role store down")
	r := newResolver(&fakeGrants{}, &fakeRoles{err: boom}, nil, Overrides{})

	_, err := r.CanRead(context.Background(), testUser(), primitive.NewObjectID())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	ov := Overrides{
		HasDeletePermission: func(context.Context, User, primitive.ObjectID) (bool, error) {
			return false, errors.New("predicate failed")
		},
	}
	r = newResolver(nil, nil, nil, ov)
	_, err = r.CanDelete(context.Background(), User{ID: primitive.NewObjectID()}, primitive.NewObjectID())
	require.Error(t, err)
}

func TestReadQueryCombinations(t *testing.T) {
	user := testUser()
	d1 := primitive.NewObjectID()
	d2 := primitive.NewObjectID()
	pred := bson.M{"string": "x"}
	withPred := Overrides{
		GetFilterByPermissions: func(context.Context, User) (bson.M, error) {
			return pred, nil
		},
	}

	t.Run("PredicateAndGrants", func(t *testing.T) {
		grants := &fakeGrants{objects: []primitive.ObjectID{d1, d2}}
		r := newResolver(grants, &fakeRoles{}, nil, withPred)
		q, err := r.ReadQuery(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"$and": []bson.M{
			{"string": "x"},
			{"_id": bson.M{"$in": []primitive.ObjectID{d1, d2}}},
		}}, q)
	})

	t.Run("PredicateAlone", func(t *testing.T) {
		r := newResolver(&fakeGrants{}, &fakeRoles{}, nil, withPred)
		q, err := r.ReadQuery(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, pred, q)
	})

	t.Run("GrantsAlone", func(t *testing.T) {
		grants := &fakeGrants{objects: []primitive.ObjectID{d1}}
		r := newResolver(grants, &fakeRoles{}, nil, Overrides{})
		q, err := r.ReadQuery(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"_id": bson.M{"$in": []primitive.ObjectID{d1}}}, q)
	})

	t.Run("NothingMatchable", func(t *testing.T) {
		r := newResolver(&fakeGrants{}, &fakeRoles{}, nil, Overrides{})
		q, err := r.ReadQuery(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"_id": bson.M{"$exists": false}}, q)
	})

	t.Run("RoleReadMeansNoRestriction", func(t *testing.T) {
		roles := &fakeRoles{roles: roleWith("person", LevelRead)}
		r := newResolver(&fakeGrants{}, roles, nil, withPred)
		q, err := r.ReadQuery(context.Background(), user)
		require.NoError(t, err)
		assert.Nil(t, q)
	})

	t.Run("NoStoresNoPredicate", func(t *testing.T) {
		r := newResolver(nil, nil, nil, Overrides{})
		q, err := r.ReadQuery(context.Background(), user)
		require.NoError(t, err)
		assert.Nil(t, q)
	})
}
