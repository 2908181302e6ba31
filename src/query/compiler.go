package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docbase/src/registry"
	"docbase/src/schema"
)

// Resolver dereferences foreign keys for the compiler. ResolveRefs
// finds documents of the referenced type whose display label equals
// (or is contained in) the given values; ResolveAny applies the $any
// classification to the referenced type's display-label field. Both
// return the matching documents' ids.
type Resolver interface {
	ResolveRefs(ctx context.Context, typeName string, values []string) ([]primitive.ObjectID, error)
	ResolveAny(ctx context.Context, typeName string, value string) ([]primitive.ObjectID, error)
}

// Compiler translates an untyped, string-keyed filter into a query
// plan for one document type. It is immutable after construction and
// safe for concurrent use.
type Compiler struct {
	typeName string
	index    *schema.PathIndex
	resolver Resolver
	logger   *zap.SugaredLogger
}

func NewCompiler(typeName string, reg *registry.Registry, resolver Resolver, logger *zap.SugaredLogger) (*Compiler, error) {
	model, err := reg.Get(typeName)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		typeName: typeName,
		index:    model.Index,
		resolver: resolver,
		logger:   logger,
	}, nil
}

// NewCompilerForIndex builds a compiler directly over a path index,
// for callers that manage their own registry entries.
func NewCompilerForIndex(typeName string, index *schema.PathIndex, resolver Resolver, logger *zap.SugaredLogger) *Compiler {
	return &Compiler{typeName: typeName, index: index, resolver: resolver, logger: logger}
}

// refJob is one pending foreign-key dereference for an explicit
// filter key.
type refJob struct {
	slot   int
	field  string
	target string
	values []string
}

// Compile evaluates every filter key independently and combines the
// results with logical AND. scope, when non-nil, is ANDed in ahead of
// the filter terms (the permission resolver's read predicate). Any
// unrecognized key or uncoercible value aborts the whole compilation.
func (c *Compiler) Compile(ctx context.Context, filter map[string]interface{}, scope bson.M) (*Plan, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// One slot per key so terms keep a stable order even though
	// reference lookups complete concurrently.
	slots := make([]bson.M, len(keys))
	shadow := make(map[string]struct{})
	var jobs []refJob

	for i, key := range keys {
		values, isSet := stringValues(filter[key])

		if key == "$any" {
			term, shadowPaths, err := c.compileAny(ctx, values)
			if err != nil {
				return nil, err
			}
			for _, p := range shadowPaths {
				shadow[p] = struct{}{}
			}
			slots[i] = term
			continue
		}
		if strings.HasPrefix(key, "$") {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}

		leaf, ok := c.index.Leaf(key)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}

		switch n := leaf.(type) {
		case schema.Field:
			term, err := compileField(key, n.Type, values, isSet)
			if err != nil {
				return nil, err
			}
			slots[i] = term
		case schema.Ref:
			jobs = append(jobs, refJob{slot: i, field: key, target: n.To, values: values})
		case schema.ArrayRef:
			jobs = append(jobs, refJob{slot: i, field: key, target: n.To, values: values})
		default:
			// Object/Array prefixes are never leaves; only their
			// children are filterable.
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
	}

	// Distinct reference keys resolve independently; their results are
	// ANDed like every other term.
	if len(jobs) > 0 {
		var mu sync.Mutex
		g := new(errgroup.Group)
		for _, job := range jobs {
			job := job
			g.Go(func() error {
				ids, err := c.resolver.ResolveRefs(ctx, job.target, job.values)
				if err != nil {
					return fmt.Errorf("resolving %q against type %s: %w", job.field, job.target, err)
				}
				mu.Lock()
				slots[job.slot] = bson.M{job.field: bson.M{"$in": ids}}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	terms := make([]bson.M, 0, len(slots)+1)
	if len(scope) > 0 {
		terms = append(terms, scope)
	}
	for _, t := range slots {
		if t != nil {
			terms = append(terms, t)
		}
	}

	plan := &Plan{}
	match := combineAnd(terms)
	if len(shadow) == 0 {
		plan.Match = match
		return plan, nil
	}

	paths := make([]string, 0, len(shadow))
	for p := range shadow {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	materialize := bson.M{}
	for _, p := range paths {
		materialize[shadowKey(p)] = bson.M{"$toString": "$" + p}
	}
	plan.Pipeline = []bson.M{
		{"$addFields": materialize},
		{"$match": match},
	}
	return plan, nil
}

// compileField coerces values into a field's primitive type and emits
// equality or set-membership.
func compileField(key string, t schema.FieldType, values []string, isSet bool) (bson.M, error) {
	switch t {
	case schema.Number:
		parsed := make([]interface{}, 0, len(values))
		for _, v := range values {
			n, err := ParseNumber(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			parsed = append(parsed, n)
		}
		return eqOrIn(key, parsed, isSet), nil
	case schema.ObjectID:
		parsed := make([]interface{}, 0, len(values))
		for _, v := range values {
			oid, err := primitive.ObjectIDFromHex(v)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w: %q is not an object id", key, ErrBadValue, v)
			}
			parsed = append(parsed, oid)
		}
		return eqOrIn(key, parsed, isSet), nil
	}
	// String, boolean and date values pass through uncoerced; the
	// store applies its native comparison rules.
	raw := make([]interface{}, 0, len(values))
	for _, v := range values {
		raw = append(raw, v)
	}
	return eqOrIn(key, raw, isSet), nil
}

func eqOrIn(key string, values []interface{}, isSet bool) bson.M {
	if isSet || len(values) != 1 {
		return bson.M{key: bson.M{"$in": values}}
	}
	return bson.M{key: values[0]}
}

// stringValues normalizes a filter value to its textual elements,
// reporting whether it arrived as a set (which selects membership over
// equality).
func stringValues(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, asString(e))
		}
		return out, true
	case string:
		return []string{t}, false
	}
	return []string{asString(v)}, false
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
