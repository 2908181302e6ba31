package query

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/multierr"
)

// idHexLength is the canonical textual length of a document identity
// (hex form of a 12-byte id).
const idHexLength = 24

// compileAny compiles the reserved $any key: a cross-field fuzzy
// match. Each value element is classified independently and every
// resulting branch is ORed together, with no per-element
// short-circuit. Reference fields fan out one lookup per element per
// referenced field; all branches run to completion and any errors are
// reported once, combined.
func (c *Compiler) compileAny(ctx context.Context, values []string) (bson.M, []string, error) {
	var (
		branches []bson.M
		shadow   []string
	)
	for _, v := range values {
		branches = append(branches, c.anyBranches(v, &shadow)...)
	}

	refPaths := make([]string, 0, len(c.index.Refs))
	for p := range c.index.Refs {
		refPaths = append(refPaths, p)
	}
	sort.Strings(refPaths)

	if len(refPaths) > 0 && c.resolver != nil {
		var (
			mu         sync.Mutex
			refMatches []bson.M
			errs       []error
			wg         sync.WaitGroup
		)
		for _, v := range values {
			for _, path := range refPaths {
				wg.Add(1)
				go func(path, target, value string) {
					defer wg.Done()
					ids, err := c.resolver.ResolveAny(ctx, target, value)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
						return
					}
					if len(ids) > 0 {
						refMatches = append(refMatches, bson.M{path: bson.M{"$in": ids}})
					}
				}(path, c.index.Refs[path].To, v)
			}
		}
		wg.Wait()
		if err := multierr.Combine(errs...); err != nil {
			return nil, nil, err
		}
		// Branch completion order races; keep the plan deterministic.
		sort.Slice(refMatches, func(i, j int) bool {
			return stringify(refMatches[i]) < stringify(refMatches[j])
		})
		branches = append(branches, refMatches...)
	}

	switch len(branches) {
	case 0:
		return matchNothing(), nil, nil
	case 1:
		return branches[0], shadow, nil
	}
	return bson.M{"$or": branches}, shadow, nil
}

// anyBranches classifies one value element and emits one OR-branch per
// candidate path. Classification accumulates categories in priority
// order: numbers (plus dates for short integers, plausible year
// fragments), booleans for the literal true/false, identities for
// id-length hex text, and strings always, matched by case-insensitive
// containment. Non-string categories match against the stringified
// shadow copy of the path.
func (c *Compiler) anyBranches(v string, shadow *[]string) []bson.M {
	var out []bson.M
	contains := bson.M{"$regex": regexp.QuoteMeta(v), "$options": "i"}

	if _, err := ParseNumber(v); err == nil {
		for _, p := range c.index.Numbers {
			out = append(out, bson.M{shadowKey(p): contains})
			*shadow = append(*shadow, p)
		}
		if len(v) <= 4 {
			if _, err := strconv.ParseInt(v, 10, 64); err == nil {
				for _, p := range c.index.Dates {
					out = append(out, bson.M{shadowKey(p): contains})
					*shadow = append(*shadow, p)
				}
			}
		}
	}

	if v == "true" || v == "false" {
		b := v == "true"
		for _, p := range c.index.Booleans {
			out = append(out, bson.M{p: b})
		}
	}

	if len(v) == idHexLength {
		if oid, err := parseObjectID(v); err == nil {
			for _, p := range c.index.IDs {
				out = append(out, bson.M{p: oid})
			}
		}
	}

	for _, p := range c.index.Strings {
		out = append(out, bson.M{p: contains})
	}
	return out
}

func stringify(m bson.M) string {
	b, err := bson.MarshalExtJSON(m, true, false)
	if err != nil {
		return ""
	}
	return string(b)
}
