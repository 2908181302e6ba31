package query

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"docbase/src/registry"
	"docbase/src/schema"
)

func parseObjectID(s string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(s)
}

// LabelResolver dereferences foreign keys by searching the referenced
// type's display-label field through the registry. It is the default
// Resolver wired into every compiler.
type LabelResolver struct {
	Registry *registry.Registry
	Logger   *zap.SugaredLogger
}

// ResolveRefs finds documents of the referenced type whose display
// label equals (or, for multiple values, is one of) the given values.
func (r *LabelResolver) ResolveRefs(ctx context.Context, typeName string, values []string) ([]primitive.ObjectID, error) {
	model, err := r.Registry.Get(typeName)
	if err != nil {
		return nil, err
	}
	var filter bson.M
	if len(values) == 1 {
		filter = bson.M{model.DisplayLabel: values[0]}
	} else {
		set := make([]interface{}, 0, len(values))
		for _, v := range values {
			set = append(set, v)
		}
		filter = bson.M{model.DisplayLabel: bson.M{"$in": set}}
	}
	docs, err := model.Store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return documentIDs(typeName, docs)
}

// ResolveAny applies the $any classification to the referenced type's
// display-label field: substring containment for string labels, typed
// equality where the value coerces, no match otherwise.
func (r *LabelResolver) ResolveAny(ctx context.Context, typeName string, value string) ([]primitive.ObjectID, error) {
	model, err := r.Registry.Get(typeName)
	if err != nil {
		return nil, err
	}

	var filter bson.M
	if model.DisplayLabel == "_id" {
		oid, err := parseObjectID(value)
		if err != nil {
			return nil, nil
		}
		filter = bson.M{"_id": oid}
	} else {
		leaf, ok := model.Index.Leaf(model.DisplayLabel)
		if !ok {
			return nil, nil
		}
		field, ok := leaf.(schema.Field)
		if !ok {
			return nil, nil
		}
		switch field.Type {
		case schema.String:
			filter = bson.M{model.DisplayLabel: bson.M{
				"$regex":   regexp.QuoteMeta(value),
				"$options": "i",
			}}
		case schema.Number:
			n, err := ParseNumber(value)
			if err != nil {
				return nil, nil
			}
			filter = bson.M{model.DisplayLabel: n}
		case schema.Boolean:
			if value != "true" && value != "false" {
				return nil, nil
			}
			filter = bson.M{model.DisplayLabel: value == "true"}
		case schema.ObjectID:
			oid, err := parseObjectID(value)
			if err != nil {
				return nil, nil
			}
			filter = bson.M{model.DisplayLabel: oid}
		default:
			// Date labels are not searchable by fragment.
			return nil, nil
		}
	}

	docs, err := model.Store.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return documentIDs(typeName, docs)
}

func documentIDs(typeName string, docs []bson.M) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, doc := range docs {
		id, ok := doc["_id"].(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("type %s: document without object id", typeName)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
