package restql

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntaxErrorMessage(t *testing.T) {
	_, err := Parse("{- author}")
	require.Error(t, err)

	assert.Equal(t,
		`syntax error at 1:2: exclude operator '-' must be directly followed by a field name, without whitespace (got "-", expected field name)`,
		err.Error())
	assert.Equal(t,
		"QuerySyntaxError: exclude operator '-' must be directly followed by a field name, without whitespace on - author}",
		Describe(err))
	assert.True(t, IsParseError(err))
}

func TestSyntaxErrorAtEndOfInput(t *testing.T) {
	_, err := Parse("{name")
	require.Error(t, err)
	assert.Equal(t, "QuerySyntaxError: unbalanced braces on end of input", Describe(err))

	_, err = Parse("")
	require.Error(t, err)
	assert.Equal(t, `syntax error at 1:1: empty query (got "end of input", expected '{')`, err.Error())
}

func TestQueryFormatErrorMessage(t *testing.T) {
	_, err := Parse("{a: b, b: a}")
	require.Error(t, err)

	assert.Equal(t, "alias collides with another field name at the same level: a, b", err.Error())
	assert.Equal(t, "QueryFormatError: alias collides with another field name at the same level: a, b", Describe(err))
	assert.True(t, IsParseError(err))
}

func TestDescribeWrapped(t *testing.T) {
	_, err := Parse("{name}}")
	wrapped := fmt.Errorf("request 42: %w", err)
	assert.Equal(t, "QuerySyntaxError: unexpected input after the closing '}' on }", Describe(wrapped))

	plain := errors.New("boom")
	assert.Equal(t, "boom", Describe(plain))
	assert.False(t, IsParseError(plain))
}

func TestAsError(t *testing.T) {
	_, err := Parse("(x: abc){a}")
	e := AsError(err)
	require.NotNil(t, e)
	assert.Equal(t, ErrSyntax, e.Code)
	assert.Equal(t, `QuerySyntaxError: unquoted value "abc" for argument "x" on abc){a}`, e.Message)
	assert.Equal(t, 1, e.Details["line"])
	assert.Equal(t, 5, e.Details["column"])
	assert.Equal(t, "abc", e.Details["got"])

	_, err = Parse("{id: id}")
	e = AsError(err)
	assert.Equal(t, ErrFormat, e.Code)
	assert.Equal(t, []string{"id"}, e.Details["fields"])

	orig := &Error{Code: ErrValidation, Message: "bad"}
	assert.Same(t, orig, AsError(fmt.Errorf("wrap: %w", orig)))

	e = AsError(errors.New("boom"))
	assert.Equal(t, ErrInternal, e.Code)
	assert.Equal(t, "boom", e.Message)

	assert.Nil(t, AsError(nil))
}

func TestAsErrorJSON(t *testing.T) {
	_, err := Parse("{a,,b}")
	data, jerr := json.Marshal(AsError(err))
	require.NoError(t, jerr)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, ErrSyntax, m["code"])
	assert.Equal(t, "QuerySyntaxError: expected field name on ,b}", m["message"])
}
