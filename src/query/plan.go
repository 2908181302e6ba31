package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Plan is a compiled filter. When no shadow fields are needed the plan
// is a plain match predicate; otherwise it is a staged pipeline that
// first materializes stringified copies of non-string fields and then
// matches against them.
type Plan struct {
	Match    bson.M
	Pipeline []bson.M
}

// Stages renders the plan as aggregation stages regardless of which
// form it took.
func (p *Plan) Stages() []bson.M {
	if p.Pipeline != nil {
		return p.Pipeline
	}
	return []bson.M{{"$match": p.Match}}
}

// shadowKey names the materialized stringified copy of a path.
func shadowKey(path string) string {
	return path + "_str"
}

// matchNothing is a predicate guaranteed to match no documents.
func matchNothing() bson.M {
	return bson.M{"_id": bson.M{"$exists": false}}
}

func combineAnd(terms []bson.M) bson.M {
	switch len(terms) {
	case 0:
		return bson.M{}
	case 1:
		return terms[0]
	}
	return bson.M{"$and": terms}
}
