package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"docbase/src/schema"
)

// TypeDef is the on-disk declaration of one document type. The field
// list is ordered; nested plain objects are declared field-by-field
// with dotted names, exactly as the schema layer surfaces them.
type TypeDef struct {
	TypeName string          `json:"type"`
	Route    string          `json:"route"`
	Label    string          `json:"label"`
	Fields   []FieldDeclared `json:"fields"`
}

// FieldDeclared mirrors schema.FieldDef with wire-friendly kind and
// type names.
type FieldDeclared struct {
	Name     string          `json:"name"`
	Kind     string          `json:"kind,omitempty"` // "", "subschema", "ref", "reflist"
	Type     string          `json:"type,omitempty"` // "number", "string", "boolean", "objectid", "date"
	Required bool            `json:"required,omitempty"`
	Label    bool            `json:"label,omitempty"`
	Ref      string          `json:"ref,omitempty"`
	Fields   []FieldDeclared `json:"fields,omitempty"`
}

// LoadSchemaFile reads a JSON list of type declarations.
func LoadSchemaFile(path string) ([]TypeDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	var defs []TypeDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	return defs, nil
}

// FieldDefs converts the declared fields into the builder's input.
func (d TypeDef) FieldDefs() ([]schema.FieldDef, error) {
	return convertFields(d.Fields)
}

func convertFields(declared []FieldDeclared) ([]schema.FieldDef, error) {
	defs := make([]schema.FieldDef, 0, len(declared))
	for _, f := range declared {
		def := schema.FieldDef{
			Name:     f.Name,
			Required: f.Required,
			Label:    f.Label,
			Ref:      f.Ref,
		}
		switch f.Kind {
		case "":
			def.Kind = schema.KindPrimitive
			t, err := fieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			def.Type = t
		case "subschema":
			def.Kind = schema.KindSubSchema
			children, err := convertFields(f.Fields)
			if err != nil {
				return nil, err
			}
			def.Fields = children
		case "ref":
			def.Kind = schema.KindReference
		case "reflist":
			def.Kind = schema.KindReferenceList
		default:
			return nil, fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func fieldType(name string) (schema.FieldType, error) {
	switch name {
	case "number":
		return schema.Number, nil
	case "string", "":
		return schema.String, nil
	case "boolean":
		return schema.Boolean, nil
	case "objectid":
		return schema.ObjectID, nil
	case "date":
		return schema.Date, nil
	}
	return schema.String, fmt.Errorf("unknown field type %q", name)
}
