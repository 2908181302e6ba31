package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPathTreeFlat(t *testing.T) {
	fields := []FieldDef{
		{Name: "name", Kind: KindPrimitive, Type: String, Required: true},
		{Name: "age", Kind: KindPrimitive, Type: Number},
		{Name: "active", Kind: KindPrimitive, Type: Boolean},
	}

	tree := BuildPathTree(fields)
	require.Len(t, tree, 3)

	// One top-level leaf per field, in declaration order.
	assert.Equal(t, Field{Name: "name", Type: String, Required: true}, tree[0])
	assert.Equal(t, Field{Name: "age", Type: Number}, tree[1])
	assert.Equal(t, Field{Name: "active", Type: Boolean}, tree[2])

	idx := BuildPathIndex(tree)
	assert.Len(t, idx.Full, 3)
	assert.Contains(t, idx.Full, "name")
	assert.Contains(t, idx.Full, "age")
	assert.Contains(t, idx.Full, "active")
}

func TestBuildPathTreeEmpty(t *testing.T) {
	assert.Empty(t, BuildPathTree(nil))
	assert.Empty(t, BuildPathTree([]FieldDef{}))
}

func TestBuildPathTreeNestedObject(t *testing.T) {
	fields := []FieldDef{
		{Name: "a.x", Kind: KindPrimitive, Type: String},
		{Name: "a.y", Kind: KindPrimitive, Type: Number, Required: true},
	}

	tree := BuildPathTree(fields)
	require.Len(t, tree, 1)

	obj, ok := tree[0].(Object)
	require.True(t, ok, "dotted fields should collapse into one Object node")
	assert.Equal(t, "a", obj.Name)
	require.Len(t, obj.Children, 2)
	assert.Equal(t, Field{Name: "x", Type: String}, obj.Children[0])
	assert.Equal(t, Field{Name: "y", Type: Number, Required: true}, obj.Children[1])

	idx := BuildPathIndex(tree)
	assert.Contains(t, idx.Full, "a.x")
	assert.Contains(t, idx.Full, "a.y")
	assert.NotContains(t, idx.Full, "a")
}

func TestBuildPathTreeDeepNesting(t *testing.T) {
	fields := []FieldDef{
		{Name: "address.geo.lat", Kind: KindPrimitive, Type: Number},
		{Name: "address.geo.lng", Kind: KindPrimitive, Type: Number},
		{Name: "address.city", Kind: KindPrimitive, Type: String},
	}

	tree := BuildPathTree(fields)
	require.Len(t, tree, 1)

	addr := tree[0].(Object)
	require.Len(t, addr.Children, 2)
	geo, ok := addr.Children[0].(Object)
	require.True(t, ok)
	assert.Equal(t, "geo", geo.Name)
	assert.Len(t, geo.Children, 2)
	assert.Equal(t, Field{Name: "city", Type: String}, addr.Children[1])

	idx := BuildPathIndex(tree)
	assert.Contains(t, idx.Full, "address.geo.lat")
	assert.Contains(t, idx.Full, "address.city")
}

func TestBuildPathTreeSubSchemaLabel(t *testing.T) {
	fields := []FieldDef{
		{Name: "items", Kind: KindSubSchema, Required: true, Fields: []FieldDef{
			{Name: "sku", Kind: KindPrimitive, Type: String},
			{Name: "title", Kind: KindPrimitive, Type: String, Label: true},
			{Name: "price", Kind: KindPrimitive, Type: Number},
		}},
	}

	tree := BuildPathTree(fields)
	require.Len(t, tree, 1)
	arr := tree[0].(Array)
	assert.Equal(t, "items", arr.Name)
	assert.True(t, arr.Required)
	assert.Equal(t, "title", arr.Label, "label should be the first field flagged as label")
	assert.Len(t, arr.Children, 3)
}

func TestBuildPathTreeSubSchemaLabelFallback(t *testing.T) {
	fields := []FieldDef{
		{Name: "items", Kind: KindSubSchema, Fields: []FieldDef{
			{Name: "sku", Kind: KindPrimitive, Type: String},
		}},
	}

	tree := BuildPathTree(fields)
	arr := tree[0].(Array)
	assert.Equal(t, "_id", arr.Label, "label should fall back to the identity field")
}

func TestBuildPathTreeReferences(t *testing.T) {
	fields := []FieldDef{
		{Name: "owner", Kind: KindReference, Ref: "person"},
		{Name: "tags", Kind: KindReferenceList, Ref: "tag", Required: true},
	}

	tree := BuildPathTree(fields)
	require.Len(t, tree, 2)
	assert.Equal(t, Ref{Name: "owner", To: "person"}, tree[0])
	assert.Equal(t, ArrayRef{Name: "tags", To: "tag", Required: true}, tree[1])
}

func TestBuildPathTreeMixedOrder(t *testing.T) {
	fields := []FieldDef{
		{Name: "title", Kind: KindPrimitive, Type: String},
		{Name: "meta.views", Kind: KindPrimitive, Type: Number},
		{Name: "owner", Kind: KindReference, Ref: "person"},
		{Name: "meta.stars", Kind: KindPrimitive, Type: Number},
	}

	tree := BuildPathTree(fields)
	require.Len(t, tree, 3)
	assert.Equal(t, "title", tree[0].PathName())
	assert.Equal(t, "meta", tree[1].PathName(), "object emitted at first appearance")
	assert.Equal(t, "owner", tree[2].PathName())

	meta := tree[1].(Object)
	require.Len(t, meta.Children, 2)
	assert.Equal(t, "views", meta.Children[0].PathName())
	assert.Equal(t, "stars", meta.Children[1].PathName())
}
