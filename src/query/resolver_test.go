package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"docbase/src/registry"
	"docbase/src/schema"
)

type fakeDocStore struct {
	lastFilter bson.M
	docs       []bson.M
	err        error
}

func (f *fakeDocStore) FindByID(_ context.Context, _ primitive.ObjectID) (bson.M, error) {
	return nil, f.err
}
func (f *fakeDocStore) FindOne(_ context.Context, _ bson.M) (bson.M, error) { return nil, f.err }
func (f *fakeDocStore) Find(_ context.Context, filter bson.M) ([]bson.M, error) {
	f.lastFilter = filter
	return f.docs, f.err
}
func (f *fakeDocStore) Aggregate(_ context.Context, _ []bson.M) ([]bson.M, error) {
	return nil, f.err
}
func (f *fakeDocStore) Save(_ context.Context, _ bson.M) (primitive.ObjectID, error) {
	return primitive.NilObjectID, f.err
}
func (f *fakeDocStore) Delete(_ context.Context, _ primitive.ObjectID) error { return f.err }

func companyRegistry(t *testing.T, st *fakeDocStore) *registry.Registry {
	t.Helper()
	reg := registry.NewRegistry(zap.NewNop().Sugar())
	require.NoError(t, reg.Register(&registry.InfoModel{
		TypeName:     "company",
		DisplayLabel: "name",
		Tree: schema.BuildPathTree([]schema.FieldDef{
			{Name: "name", Kind: schema.KindPrimitive, Type: schema.String},
		}),
		Store: st,
	}))
	return reg
}

func TestLabelResolverResolveRefs(t *testing.T) {
	id := primitive.NewObjectID()
	st := &fakeDocStore{docs: []bson.M{{"_id": id, "name": "hector"}}}
	r := &LabelResolver{Registry: companyRegistry(t, st), Logger: zap.NewNop().Sugar()}

	ids, err := r.ResolveRefs(context.Background(), "company", []string{"hector"})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{id}, ids)
	assert.Equal(t, bson.M{"name": "hector"}, st.lastFilter,
		"a single value matches the display label by equality")
}

func TestLabelResolverResolveRefsSet(t *testing.T) {
	st := &fakeDocStore{}
	r := &LabelResolver{Registry: companyRegistry(t, st), Logger: zap.NewNop().Sugar()}

	_, err := r.ResolveRefs(context.Background(), "company", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"name": bson.M{"$in": []interface{}{"a", "b"}}}, st.lastFilter)
}

func TestLabelResolverResolveAnyStringLabel(t *testing.T) {
	st := &fakeDocStore{}
	r := &LabelResolver{Registry: companyRegistry(t, st), Logger: zap.NewNop().Sugar()}

	_, err := r.ResolveAny(context.Background(), "company", "hec")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"name": bson.M{"$regex": "hec", "$options": "i"}}, st.lastFilter,
		"string labels match by containment")
}

func TestLabelResolverResolveAnyIdentityLabel(t *testing.T) {
	st := &fakeDocStore{}
	reg := registry.NewRegistry(zap.NewNop().Sugar())
	require.NoError(t, reg.Register(&registry.InfoModel{
		TypeName: "tag",
		Store:    st,
	}))
	r := &LabelResolver{Registry: reg, Logger: zap.NewNop().Sugar()}

	// An unparseable identity is simply no match, not an error.
	ids, err := r.ResolveAny(context.Background(), "tag", "not-an-id")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Nil(t, st.lastFilter)

	oid := primitive.NewObjectID()
	_, err = r.ResolveAny(context.Background(), "tag", oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": oid}, st.lastFilter)
}

func TestLabelResolverUnknownType(t *testing.T) {
	r := &LabelResolver{Registry: registry.NewRegistry(zap.NewNop().Sugar()), Logger: zap.NewNop().Sugar()}
	_, err := r.ResolveRefs(context.Background(), "ghost", []string{"x"})
	assert.Error(t, err)
}
