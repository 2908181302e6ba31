package schema

import (
	"strings"
)

// FieldType is the primitive type of a leaf field.
type FieldType int

const (
	Number FieldType = iota
	String
	Boolean
	ObjectID
	Date
)

func (t FieldType) String() string {
	switch t {
	case Number:
		return "number"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case ObjectID:
		return "objectid"
	case Date:
		return "date"
	}
	return "unknown"
}

// FieldKind describes how a field was declared by the schema layer.
type FieldKind int

const (
	// KindPrimitive is a plain scalar field (or an array of scalars,
	// which the store matches element-wise with the same operators).
	KindPrimitive FieldKind = iota

	// KindSubSchema is an embedded array of sub-documents with its own
	// field list.
	KindSubSchema

	// KindReference is a scalar foreign key to another document type.
	KindReference

	// KindReferenceList is an array of foreign keys.
	KindReferenceList
)

// FieldDef is one declared field as surfaced by the schema source.
// Fields is only populated for KindSubSchema, Ref only for the two
// reference kinds. A dotted Name declares a field of a nested plain
// object field-by-field.
type FieldDef struct {
	Name     string
	Kind     FieldKind
	Type     FieldType
	Required bool
	Label    bool
	Ref      string
	Fields   []FieldDef
}

// Path is one node in a document type's shape tree. It has exactly
// five variants: Field, Object, Array, Ref and ArrayRef. Consumers are
// expected to switch exhaustively on the concrete type.
type Path interface {
	PathName() string
	isPath()
}

// Field is a leaf holding a primitive value.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Object is an embedded sub-document declared field-by-field with
// dotted names.
type Object struct {
	Name     string
	Required bool
	Children []Path
}

// Array is an embedded array of sub-documents. Label names the child
// field used as the human-readable display key.
type Array struct {
	Name     string
	Required bool
	Label    string
	Children []Path
}

// Ref is a scalar foreign key referencing the To type by its identity
// field. The builder never expands it; dereferencing belongs to the
// query compiler.
type Ref struct {
	Name string
	To   string
}

// ArrayRef is an array of foreign keys referencing the To type.
type ArrayRef struct {
	Name     string
	Required bool
	To       string
}

func (f Field) PathName() string    { return f.Name }
func (o Object) PathName() string   { return o.Name }
func (a Array) PathName() string    { return a.Name }
func (r Ref) PathName() string      { return r.Name }
func (r ArrayRef) PathName() string { return r.Name }

func (Field) isPath()    {}
func (Object) isPath()   {}
func (Array) isPath()    {}
func (Ref) isPath()      {}
func (ArrayRef) isPath() {}

// BuildPathTree turns the schema source's ordered field list into a
// tree of Path nodes. Plain names become leaves in declaration order.
// Dotted names are grouped by their first segment into one synthetic
// Object node per group, the grouping reapplied recursively to the
// remaining suffix. Sub-schema fields recurse into their own field
// list. Empty input yields an empty tree.
func BuildPathTree(fields []FieldDef) []Path {
	var tree []Path

	// Dotted names collapse into one Object per leading segment,
	// emitted at the position of the segment's first appearance.
	grouped := make(map[string][]FieldDef)
	var groupOrder []string

	for _, f := range fields {
		if dot := strings.Index(f.Name, "."); dot >= 0 {
			head := f.Name[:dot]
			rest := f
			rest.Name = f.Name[dot+1:]
			if _, seen := grouped[head]; !seen {
				groupOrder = append(groupOrder, head)
				tree = append(tree, Object{Name: head})
			}
			grouped[head] = append(grouped[head], rest)
			continue
		}

		switch f.Kind {
		case KindSubSchema:
			tree = append(tree, Array{
				Name:     f.Name,
				Required: f.Required,
				Label:    labelField(f.Fields),
				Children: BuildPathTree(f.Fields),
			})
		case KindReference:
			tree = append(tree, Ref{Name: f.Name, To: f.Ref})
		case KindReferenceList:
			tree = append(tree, ArrayRef{Name: f.Name, Required: f.Required, To: f.Ref})
		default:
			tree = append(tree, Field{Name: f.Name, Type: f.Type, Required: f.Required})
		}
	}

	// Fill in the synthetic Object nodes now that every member of each
	// group has been collected.
	if len(groupOrder) > 0 {
		for i, node := range tree {
			obj, ok := node.(Object)
			if !ok {
				continue
			}
			members, ok := grouped[obj.Name]
			if !ok {
				continue
			}
			obj.Children = BuildPathTree(members)
			tree[i] = obj
		}
	}

	return tree
}

// labelField picks the display key for an embedded array: the first
// child flagged as a label, falling back to the identity field.
func labelField(fields []FieldDef) string {
	for _, f := range fields {
		if f.Label {
			return f.Name
		}
	}
	return "_id"
}
