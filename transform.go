package restql

import (
	"sort"
	"strconv"
)

// builder turns a raw parse tree into Query nodes, enforcing the structural
// rules the grammar cannot express.
type builder struct {
	tzer *tokenizer
}

// build assembles the Query for one block. fieldName is empty for the root.
func (b *builder) build(block *rawBlock, fieldName string) (*Query, error) {
	q := newQuery(fieldName, b.tzer.posAt(block.pos))

	for _, arg := range block.args {
		q.Arguments[arg.name] = decodeValue(arg.value)
	}

	for _, item := range block.items {
		switch item.kind {
		case rawWildcard:
			q.Included = append(q.Included, AllFields())
		case rawExcluded:
			q.Excluded = append(q.Excluded, item.name)
		case rawField:
			if item.alias != "" {
				q.Aliases[item.name] = item.alias
			}
			q.Included = append(q.Included, Leaf(item.name))
		case rawParent:
			child, err := b.build(item.block, item.name)
			if err != nil {
				return nil, err
			}
			child.Pos = b.tzer.posAt(item.pos)
			if item.alias != "" {
				q.Aliases[item.name] = item.alias
			}
			q.Included = append(q.Included, Nested(child))
		}
	}

	if err := checkAliases(q); err != nil {
		return nil, err
	}
	if err := checkRepeated(q); err != nil {
		return nil, err
	}

	// A level either picks fields or removes some from the full set. Once
	// something is excluded, flat names are covered by the wildcard, which
	// takes the place of the first one; only sub-selections stay listed.
	if len(q.Excluded) > 0 {
		wildcardAt := -1
		kept := q.Included[:0]
		for _, f := range q.Included {
			if f.Kind == FieldLeaf {
				if wildcardAt < 0 {
					wildcardAt = len(kept)
				}
				continue
			}
			kept = append(kept, f)
		}
		q.Included = kept
		if !q.IncludesAll() {
			if wildcardAt < 0 {
				wildcardAt = len(q.Included)
			}
			q.Included = append(q.Included, Field{})
			copy(q.Included[wildcardAt+1:], q.Included[wildcardAt:])
			q.Included[wildcardAt] = AllFields()
		}
	}

	return q, nil
}

// checkAliases rejects aliases that make a name ambiguous at one level:
// an alias equal to a name that is itself aliased away ({id: id},
// {a: b, b: a}), an alias equal to another field written at the same level
// ({id, id: course{name}}), and one alias given to two different fields.
func checkAliases(q *Query) error {
	if len(q.Aliases) == 0 {
		return nil
	}

	names := make(map[string]bool)
	for name := range q.Aliases {
		names[name] = true
	}
	for _, f := range q.Included {
		if f.Kind == FieldWildcard {
			continue
		}
		names[f.Name] = true
	}
	for _, name := range q.Excluded {
		names[name] = true
	}

	faulty := make(map[string]bool)
	owners := make(map[string]string, len(q.Aliases))
	for name, alias := range q.Aliases {
		if names[alias] {
			faulty[alias] = true
		}
		if prev, ok := owners[alias]; ok && prev != name {
			faulty[alias] = true
		}
		owners[alias] = name
	}
	if len(faulty) == 0 {
		return nil
	}

	fields := make([]string, 0, len(faulty))
	for name := range faulty {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return &QueryFormatError{
		Message:   "alias collides with another field name at the same level",
		FieldName: q.FieldName,
		Fields:    fields,
		Pos:       q.Pos,
	}
}

// checkRepeated rejects a name written more than once at one level, whether
// included twice ({id, id}), excluded twice or both included and excluded
// ({name, -name}).
func checkRepeated(q *Query) error {
	seen := make(map[string]bool)
	faulty := make(map[string]bool)
	use := func(name string) {
		if seen[name] {
			faulty[name] = true
		}
		seen[name] = true
	}
	for _, f := range q.Included {
		if f.Kind != FieldWildcard {
			use(f.Name)
		}
	}
	for _, name := range q.Excluded {
		use(name)
	}
	if len(faulty) == 0 {
		return nil
	}

	fields := make([]string, 0, len(faulty))
	for name := range faulty {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return &QueryFormatError{
		Message:   "field included or excluded more than once",
		FieldName: q.FieldName,
		Fields:    fields,
		Pos:       q.Pos,
	}
}

// decodeValue converts an argument token into its Go value:
// string, int64, float64, bool or nil.
func decodeValue(tok token) any {
	switch tok.typ {
	case tokenString:
		return tok.val
	case tokenNumber:
		if n, err := strconv.ParseInt(tok.val, 10, 64); err == nil {
			return n
		}
		// The tokenizer has already rejected literals out of float64 range.
		f, _ := strconv.ParseFloat(tok.val, 64)
		return f
	}
	switch tok.val {
	case "true":
		return true
	case "false":
		return false
	}
	return nil
}
