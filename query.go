package restql

import (
	"sort"
	"strconv"
	"strings"
)

// A nil *Query stands for "no query supplied" and selects everything.
// The methods below accept a nil receiver with that meaning.

// IsRoot reports whether q is the top-level node.
func (q *Query) IsRoot() bool {
	return q == nil || q.FieldName == ""
}

// IncludesAll reports whether q carries the wildcard.
func (q *Query) IncludesAll() bool {
	if q == nil {
		return true
	}
	for _, f := range q.Included {
		if f.Kind == FieldWildcard {
			return true
		}
	}
	return false
}

// IsExcluded reports whether name was explicitly excluded at this level.
func (q *Query) IsExcluded(name string) bool {
	if q == nil {
		return false
	}
	for _, ex := range q.Excluded {
		if ex == name {
			return true
		}
	}
	return false
}

// Includes reports whether the field with the given original name is selected
// at this level: listed directly (flat or nested, aliased or not) or covered by
// the wildcard, and not excluded.
func (q *Query) Includes(name string) bool {
	if q == nil {
		return true
	}
	if q.IsExcluded(name) {
		return false
	}
	for _, f := range q.Included {
		if f.Kind == FieldWildcard || f.Name == name {
			return true
		}
	}
	return false
}

// Child returns the sub-selection requested for name, or nil when the field
// has none (flat, wildcard-covered, or absent).
func (q *Query) Child(name string) *Query {
	if q == nil {
		return nil
	}
	for _, f := range q.Included {
		if f.Kind == FieldNested && f.Name == name {
			return f.Query
		}
	}
	return nil
}

// Alias returns the alias requested for name.
func (q *Query) Alias(name string) (string, bool) {
	if q == nil {
		return "", false
	}
	alias, ok := q.Aliases[name]
	return alias, ok
}

// OutputName returns the name under which field name appears in output:
// its alias when one was requested, name itself otherwise.
func (q *Query) OutputName(name string) string {
	if alias, ok := q.Alias(name); ok {
		return alias
	}
	return name
}

// Args returns a copy of the arguments given at this level.
func (q *Query) Args() map[string]any {
	out := make(map[string]any)
	if q == nil {
		return out
	}
	for k, v := range q.Arguments {
		out[k] = v
	}
	return out
}

// Fields returns the explicitly included field names in source order,
// without the wildcard marker.
func (q *Query) Fields() []string {
	if q == nil {
		return nil
	}
	var out []string
	for _, f := range q.Included {
		if f.Kind != FieldWildcard {
			out = append(out, f.Name)
		}
	}
	return out
}

// ToMap converts the tree into the nested map used by eager-loading planners:
// true for an included field, false for an excluded one, a nested map for a
// sub-selection. The wildcard appears as "*": true.
func (q *Query) ToMap() map[string]any {
	out := make(map[string]any)
	if q == nil {
		out[Wildcard] = true
		return out
	}
	for _, f := range q.Included {
		switch f.Kind {
		case FieldWildcard:
			out[Wildcard] = true
		case FieldLeaf:
			out[f.Name] = true
		case FieldNested:
			out[f.Name] = f.Query.ToMap()
		}
	}
	for _, name := range q.Excluded {
		out[name] = false
	}
	return out
}

// QueryParams flattens the arguments of the whole tree into one map. Arguments
// of nested levels are prefixed with the path of field names leading to them,
// joined by "__" (course(code: "CS50") becomes course__code).
func (q *Query) QueryParams() map[string]any {
	out := make(map[string]any)
	q.collectParams("", out)
	return out
}

func (q *Query) collectParams(prefix string, out map[string]any) {
	if q == nil {
		return
	}
	for name, v := range q.Arguments {
		out[prefix+name] = v
	}
	for _, f := range q.Included {
		if f.Kind == FieldNested {
			f.Query.collectParams(prefix+f.Name+"__", out)
		}
	}
}

// Equal reports whether two trees are structurally identical: same included
// order, same exclusions, aliases and arguments.
func (q *Query) Equal(other *Query) bool {
	if q == nil || other == nil {
		return q == other
	}
	if q.FieldName != other.FieldName ||
		len(q.Included) != len(other.Included) ||
		len(q.Excluded) != len(other.Excluded) ||
		len(q.Aliases) != len(other.Aliases) ||
		len(q.Arguments) != len(other.Arguments) {
		return false
	}
	for i, f := range q.Included {
		g := other.Included[i]
		if f.Kind != g.Kind || f.Name != g.Name {
			return false
		}
		if f.Kind == FieldNested && !f.Query.Equal(g.Query) {
			return false
		}
	}
	for i, name := range q.Excluded {
		if other.Excluded[i] != name {
			return false
		}
	}
	for k, v := range q.Aliases {
		if w, ok := other.Aliases[k]; !ok || w != v {
			return false
		}
	}
	for k, v := range q.Arguments {
		if w, ok := other.Arguments[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// String renders the tree back into query text. Implicit wildcards are written
// out, so parsing the result yields an equal tree.
func (q *Query) String() string {
	if q == nil {
		return "{*}"
	}
	var b strings.Builder
	q.write(&b)
	return b.String()
}

func (q *Query) write(b *strings.Builder) {
	if len(q.Arguments) > 0 {
		names := make([]string, 0, len(q.Arguments))
		for name := range q.Arguments {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteByte('(')
		for i, name := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(formatArg(q.Arguments[name]))
		}
		b.WriteByte(')')
	}
	b.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			b.WriteString(", ")
		}
		first = false
	}
	for _, f := range q.Included {
		sep()
		if f.Kind == FieldWildcard {
			b.WriteString(Wildcard)
			continue
		}
		if alias, ok := q.Aliases[f.Name]; ok {
			b.WriteString(alias)
			b.WriteString(": ")
		}
		b.WriteString(f.Name)
		if f.Kind == FieldNested {
			f.Query.write(b)
		}
	}
	// Aliased flat fields folded into the wildcard.
	listed := make(map[string]bool, len(q.Included))
	for _, name := range q.Fields() {
		listed[name] = true
	}
	var folded []string
	for name := range q.Aliases {
		if !listed[name] {
			folded = append(folded, name)
		}
	}
	sort.Strings(folded)
	for _, name := range folded {
		sep()
		b.WriteString(q.Aliases[name])
		b.WriteString(": ")
		b.WriteString(name)
	}
	for _, name := range q.Excluded {
		sep()
		b.WriteByte('-')
		b.WriteString(name)
	}
	b.WriteByte('}')
}

func formatArg(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case string:
		return quoteArg(x)
	default:
		return quoteArg(formatValue(x))
	}
}

// quoteArg writes s back as a quoted literal. Quoted values are kept as
// written, so s goes between whichever quote it does not contain unescaped.
func quoteArg(s string) string {
	for _, quote := range []byte{'"', '\''} {
		if quotable(s, quote) {
			return string(quote) + s + string(quote)
		}
	}
	// Both quotes appear bare; escaping keeps the literal parseable.
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s):
			b.WriteByte(c)
			i++
			b.WriteByte(s[i])
		case c == '\\' || c == '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// quotable reports whether s, placed between quote characters, reads back as s.
func quotable(s string, quote byte) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 == len(s) {
				return false
			}
			i++
		case quote:
			return false
		}
	}
	return true
}
