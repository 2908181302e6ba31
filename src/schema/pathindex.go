package schema

// RefTarget records where a reference leaf points and whether the
// local field holds one id or many.
type RefTarget struct {
	To    string
	Array bool
}

// PathIndex is the flattened view of a PathTree: every leaf keyed by
// its full dotted path, plus per-category partitions so the query
// compiler never re-derives field categories per request. It is built
// once per registered type and read-only thereafter.
type PathIndex struct {
	Full map[string]Path

	Strings  []string
	Numbers  []string
	Booleans []string
	Dates    []string
	IDs      []string
	Refs     map[string]RefTarget
}

// BuildPathIndex flattens a PathTree. The walk recurses through
// Object and Array nodes prefixing child keys with the parent name;
// only leaves produce entries. The input tree is not mutated and
// rebuilding from the same tree yields the same index.
func BuildPathIndex(tree []Path) *PathIndex {
	idx := &PathIndex{
		Full: make(map[string]Path),
		Refs: make(map[string]RefTarget),
	}
	idx.walk("", tree)
	return idx
}

func (idx *PathIndex) walk(prefix string, nodes []Path) {
	for _, node := range nodes {
		key := prefix + node.PathName()
		switch n := node.(type) {
		case Field:
			idx.Full[key] = n
			switch n.Type {
			case Number:
				idx.Numbers = append(idx.Numbers, key)
			case String:
				idx.Strings = append(idx.Strings, key)
			case Boolean:
				idx.Booleans = append(idx.Booleans, key)
			case Date:
				idx.Dates = append(idx.Dates, key)
			case ObjectID:
				idx.IDs = append(idx.IDs, key)
			}
		case Object:
			idx.walk(key+".", n.Children)
		case Array:
			idx.walk(key+".", n.Children)
		case Ref:
			idx.Full[key] = n
			idx.Refs[key] = RefTarget{To: n.To}
		case ArrayRef:
			idx.Full[key] = n
			idx.Refs[key] = RefTarget{To: n.To, Array: true}
		}
	}
}

// Leaf looks up the resolved leaf node for a full dotted path.
func (idx *PathIndex) Leaf(path string) (Path, bool) {
	p, ok := idx.Full[path]
	return p, ok
}
