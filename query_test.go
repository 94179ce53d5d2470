package restql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Query {
	t.Helper()
	q, err := Parse(input)
	require.NoError(t, err, input)
	return q
}

func TestQueryIncludes(t *testing.T) {
	q := mustParse(t, "{name, n: nick, course{code}}")

	assert.True(t, q.Includes("name"))
	assert.True(t, q.Includes("nick"))
	assert.True(t, q.Includes("course"))
	assert.False(t, q.Includes("age"))
	assert.False(t, q.Includes("n"), "aliases are output names, not field names")
	assert.False(t, q.IncludesAll())
	assert.True(t, q.IsRoot())
}

func TestQueryIncludesWithExclusions(t *testing.T) {
	q := mustParse(t, "{-age, course{code}}")

	assert.True(t, q.IncludesAll())
	assert.True(t, q.Includes("name"))
	assert.True(t, q.Includes("course"))
	assert.False(t, q.Includes("age"))
	assert.True(t, q.IsExcluded("age"))
	assert.False(t, q.IsExcluded("name"))
}

func TestQueryEmptySelectsNothing(t *testing.T) {
	q := mustParse(t, "{}")
	assert.False(t, q.Includes("name"))
	assert.False(t, q.IncludesAll())
	assert.Empty(t, q.Fields())
}

func TestNilQuerySelectsEverything(t *testing.T) {
	var q *Query
	assert.True(t, q.Includes("anything"))
	assert.True(t, q.IncludesAll())
	assert.False(t, q.IsExcluded("anything"))
	assert.Nil(t, q.Child("course"))
	assert.Equal(t, "course", q.OutputName("course"))
	assert.Empty(t, q.Args())
	assert.Equal(t, map[string]any{"*": true}, q.ToMap())
	assert.Empty(t, q.QueryParams())
	assert.Equal(t, "{*}", q.String())
}

func TestQueryChild(t *testing.T) {
	q := mustParse(t, "{name, c: course(code: \"CS50\"){name, books{title}}}")

	child := q.Child("course")
	require.NotNil(t, child)
	assert.Equal(t, "course", child.FieldName)
	assert.False(t, child.IsRoot())
	assert.Equal(t, []string{"name", "books"}, child.Fields())

	books := child.Child("books")
	require.NotNil(t, books)
	assert.Equal(t, []string{"title"}, books.Fields())

	assert.Nil(t, q.Child("name"), "flat fields have no sub-selection")
	assert.Nil(t, q.Child("missing"))
	assert.Nil(t, q.Child("c"), "children are looked up by field name, not alias")
}

func TestQueryAliases(t *testing.T) {
	q := mustParse(t, "{n: name, age, c: course{code}}")

	alias, ok := q.Alias("name")
	assert.True(t, ok)
	assert.Equal(t, "n", alias)

	_, ok = q.Alias("age")
	assert.False(t, ok)

	assert.Equal(t, "n", q.OutputName("name"))
	assert.Equal(t, "age", q.OutputName("age"))
	assert.Equal(t, "c", q.OutputName("course"))
}

func TestQueryArgsReturnsCopy(t *testing.T) {
	q := mustParse(t, `(status: "active"){name}`)

	args := q.Args()
	assert.Equal(t, map[string]any{"status": "active"}, args)

	args["status"] = "changed"
	assert.Equal(t, "active", q.Arguments["status"])
}

func TestQueryToMap(t *testing.T) {
	q := mustParse(t, "{name, -age, course{code, -author}, books{title}}")

	want := map[string]any{
		"*":   true,
		"age": false,
		"course": map[string]any{
			"*":      true,
			"author": false,
		},
		"books": map[string]any{
			"title": true,
		},
	}
	assert.Equal(t, want, q.ToMap())
}

func TestQueryToMapFlat(t *testing.T) {
	q := mustParse(t, "{name, age}")
	assert.Equal(t, map[string]any{"name": true, "age": true}, q.ToMap())
}

func TestQueryParams(t *testing.T) {
	q := mustParse(t, `(status: "active"){name, course(code: "CS50"){name, books(year: 2020, open: true){title}}, tags(limit: 3){name}}`)

	want := map[string]any{
		"status":              "active",
		"course__code":        "CS50",
		"course__books__year": int64(2020),
		"course__books__open": true,
		"tags__limit":         int64(3),
	}
	assert.Equal(t, want, q.QueryParams())
}

func TestQueryParamsIgnoresAliases(t *testing.T) {
	q := mustParse(t, `{c: course(code: "CS50"){name}}`)
	assert.Equal(t, map[string]any{"course__code": "CS50"}, q.QueryParams())
}

func TestQueryEqual(t *testing.T) {
	a := mustParse(t, "{name, course(code: 1){code}}")

	assert.True(t, a.Equal(mustParse(t, "{ name course (code: 1) { code } }")))
	assert.False(t, a.Equal(mustParse(t, "{course(code: 1){code}, name}")), "included order matters")
	assert.False(t, a.Equal(mustParse(t, "{name, course(code: 2){code}}")))
	assert.False(t, a.Equal(mustParse(t, "{name, course(code: 1.0){code}}")), "int and float arguments differ")
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Query)(nil).Equal(nil))
}

func TestQueryStringQuotesArguments(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"CS50", `"CS50"`},
		{`it's`, `"it's"`},
		{`say "hi"`, `'say "hi"'`},
		{`say \"hi\"`, `"say \"hi\""`},
		{`C:\dir\`, `"C:\dir\\"`},
		{`it's "x"`, `"it's \"x\""`},
	}
	for _, tt := range tests {
		q := &Query{Arguments: map[string]any{"v": tt.value}}
		assert.Equal(t, "(v: "+tt.want+"){}", q.String(), tt.value)
	}
}

func TestAll(t *testing.T) {
	q := All()
	assert.True(t, q.IsRoot())
	assert.True(t, q.IncludesAll())
	assert.True(t, q.Equal(mustParse(t, "{*}")))
}

func TestFieldKindText(t *testing.T) {
	for _, kind := range []FieldKind{FieldLeaf, FieldNested, FieldWildcard} {
		text, err := kind.MarshalText()
		require.NoError(t, err)

		var back FieldKind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, kind, back)
	}

	var k FieldKind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
	assert.Equal(t, "FieldKind(9)", FieldKind(9).String())
}
