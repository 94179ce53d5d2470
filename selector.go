package restql

import (
	"fmt"
	"sort"
)

// Selector projects JSON-like documents (map[string]any, []any) through a
// Query: it keeps the selected keys, renames aliased ones and recurses into
// sub-selections. Keys a document does not have are skipped; checking that a
// field exists belongs to whoever owns the schema.
type Selector struct {
	query *Query
}

// NewSelector validates q for projection and returns a Selector.
// A nil q selects everything. maxAliasLen of zero disables the alias length check.
func NewSelector(q *Query, maxAliasLen int) (*Selector, error) {
	if err := validateSelection(q, maxAliasLen); err != nil {
		return nil, err
	}
	return &Selector{query: q}, nil
}

// NewSelector builds a Selector using the parser's alias length limit.
func (p *Parser) NewSelector(q *Query) (*Selector, error) {
	return NewSelector(q, p.cfg.MaxAliasLen)
}

// Query returns the query the selector applies.
func (s *Selector) Query() *Query {
	return s.query
}

// Fields returns the output names of explicitly selected fields in source
// order. It is empty when the top level relies on the wildcard only.
func (s *Selector) Fields() []string {
	names := s.query.Fields()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, s.query.OutputName(name))
	}
	return out
}

// Project applies the selection to a document or a list of documents.
func (s *Selector) Project(v any) (any, error) {
	return project(s.query, "", v)
}

// Apply applies the selection to one document.
func (s *Selector) Apply(doc map[string]any) (map[string]any, error) {
	return apply(s.query, "", doc)
}

func project(q *Query, path string, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return apply(q, path, x)
	case []any:
		out := make([]any, 0, len(x))
		for i, item := range x {
			p, err := project(q, fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case []map[string]any:
		out := make([]any, 0, len(x))
		for i, item := range x {
			p, err := apply(q, fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	default:
		if q == nil {
			return v, nil
		}
		return nil, &Error{
			Code:    ErrNotNested,
			Message: fmt.Sprintf("`%s` is not a nested field", path),
			Details: map[string]any{"field": path},
		}
	}
}

func apply(q *Query, path string, doc map[string]any) (map[string]any, error) {
	if q == nil {
		return copyDoc(doc), nil
	}

	var selected []string
	if q.IncludesAll() {
		for name := range doc {
			if !q.IsExcluded(name) {
				selected = append(selected, name)
			}
		}
		sort.Strings(selected)
	} else {
		selected = q.Fields()
	}

	out := make(map[string]any, len(selected))
	for _, name := range selected {
		val, ok := doc[name]
		if !ok {
			continue
		}
		if child := q.Child(name); child != nil {
			projected, err := project(child, fieldPath(path, name), val)
			if err != nil {
				return nil, err
			}
			val = projected
		}
		out[q.OutputName(name)] = val
	}
	return out, nil
}

func fieldPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// validateSelection applies the checks that need no schema: alias length and
// output names used more than once ({id, id}, {x: a, x: b}, {ID: id, id}).
func validateSelection(q *Query, maxAliasLen int) error {
	if q == nil {
		return nil
	}
	for name, alias := range q.Aliases {
		if maxAliasLen > 0 && len(alias) > maxAliasLen {
			return &Error{
				Code:    ErrValidation,
				Message: fmt.Sprintf("the length of `%s` alias has exceeded the limit of %d characters", alias, maxAliasLen),
				Details: map[string]any{"field": name, "alias": alias, "limit": maxAliasLen},
			}
		}
	}

	seen := make(map[string]bool)
	var repeated []string
	use := func(name string) {
		if seen[name] {
			repeated = append(repeated, name)
			return
		}
		seen[name] = true
	}
	for _, f := range q.Included {
		if f.Kind != FieldWildcard {
			use(q.OutputName(f.Name))
		}
	}
	for _, name := range q.Excluded {
		use(name)
	}
	if len(repeated) > 0 {
		return &Error{
			Code:    ErrValidation,
			Message: fmt.Sprintf("fields included, excluded or aliased more than once: %v", repeated),
			Details: map[string]any{"fields": repeated, "level": q.FieldName},
		}
	}

	for _, f := range q.Included {
		if f.Kind == FieldNested {
			if err := validateSelection(f.Query, maxAliasLen); err != nil {
				return err
			}
		}
	}
	return nil
}
