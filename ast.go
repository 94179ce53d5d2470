package restql

import "fmt"

// Wildcard is the marker stored in a Query's included fields for "*".
const Wildcard = "*"

// Pos represents a position in the input string.
type Pos struct {
	Offset int `json:"offset" yaml:"offset"`
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// FieldKind tags the variants of an included field.
type FieldKind int

const (
	FieldLeaf     FieldKind = iota // plain field name
	FieldNested                    // field with its own sub-selection
	FieldWildcard                  // "*"
)

func (k FieldKind) String() string {
	switch k {
	case FieldLeaf:
		return "leaf"
	case FieldNested:
		return "nested"
	case FieldWildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler so kinds serialize by name.
func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FieldKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "leaf":
		*k = FieldLeaf
	case "nested":
		*k = FieldNested
	case "wildcard":
		*k = FieldWildcard
	default:
		return fmt.Errorf("unknown field kind %q", string(b))
	}
	return nil
}

// Field is one entry of a Query's included fields.
// Name is empty for FieldWildcard; Query is set only for FieldNested.
type Field struct {
	Kind  FieldKind `json:"kind" yaml:"kind"`
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
	Query *Query    `json:"query,omitempty" yaml:"query,omitempty"`
}

// Leaf returns an included flat field.
func Leaf(name string) Field { return Field{Kind: FieldLeaf, Name: name} }

// Nested returns an included field carrying a sub-selection.
func Nested(q *Query) Field { return Field{Kind: FieldNested, Name: q.FieldName, Query: q} }

// AllFields returns the wildcard entry.
func AllFields() Field { return Field{Kind: FieldWildcard} }

// Query is one nesting level of a parsed fields query: the root request or the
// sub-selection of a single related field.
//
// Trees returned by Parse are shared read-only; nothing in this package mutates
// them after construction.
type Query struct {
	FieldName string            `json:"fieldName,omitempty" yaml:"fieldName,omitempty"` // empty only for the root
	Included  []Field           `json:"included" yaml:"included"`
	Excluded  []string          `json:"excluded" yaml:"excluded"`
	Aliases   map[string]string `json:"aliases" yaml:"aliases"` // original name -> alias
	Arguments map[string]any    `json:"arguments" yaml:"arguments"`
	Pos       Pos               `json:"pos" yaml:"pos"`
}

func newQuery(fieldName string, pos Pos) *Query {
	return &Query{
		FieldName: fieldName,
		Included:  []Field{},
		Excluded:  []string{},
		Aliases:   map[string]string{},
		Arguments: map[string]any{},
		Pos:       pos,
	}
}

// All returns a root query that includes every field, the query used when a
// request carries no fields query at all.
func All() *Query {
	q := newQuery("", Pos{Offset: 0, Line: 1, Column: 1})
	q.Included = append(q.Included, AllFields())
	return q
}
