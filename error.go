package restql

import (
	"errors"
	"fmt"
	"strings"
)

// Error code constants for categorizing errors.
const (
	ErrSyntax     = "QUERY_SYNTAX_ERROR"
	ErrFormat     = "QUERY_FORMAT_ERROR"
	ErrValidation = "VALIDATION_ERROR"
	ErrNotNested  = "NOT_NESTED"
	ErrInternal   = "INTERNAL_ERROR"
)

// Error categories used in user-facing messages.
const (
	CategorySyntax = "QuerySyntaxError"
	CategoryFormat = "QueryFormatError"
)

// SyntaxError reports query text that does not conform to the grammar.
type SyntaxError struct {
	Message  string `json:"message"`
	Pos      Pos    `json:"pos"`
	Got      string `json:"got,omitempty"`
	Expected string `json:"expected,omitempty"`
	Text     string `json:"text"` // unparsed remainder starting at the failure
}

// Error implements the error interface for SyntaxError.
func (e *SyntaxError) Error() string {
	if e.Got != "" && e.Expected != "" {
		return fmt.Sprintf("syntax error at %d:%d: %s (got %q, expected %s)",
			e.Pos.Line, e.Pos.Column, e.Message, e.Got, e.Expected)
	}
	if e.Got != "" {
		return fmt.Sprintf("syntax error at %d:%d: %s (got %q)",
			e.Pos.Line, e.Pos.Column, e.Message, e.Got)
	}
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// QueryFormatError reports a well-formed query whose structure is contradictory,
// e.g. an alias that shadows another field at the same level.
type QueryFormatError struct {
	Message   string   `json:"message"`
	FieldName string   `json:"fieldName,omitempty"` // level the conflict was found on
	Fields    []string `json:"fields"`
	Pos       Pos      `json:"pos"`
}

// Error implements the error interface for QueryFormatError.
func (e *QueryFormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// Error represents a structured error with a code, message, and optional details.
// It is JSON-serializable for use in API responses.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Describe renders err as "<category>: <message> on <offending text>", the
// message a request pipeline hands back to the client.
func Describe(err error) string {
	var syn *SyntaxError
	if errors.As(err, &syn) {
		text := syn.Text
		if text == "" {
			text = "end of input"
		}
		return fmt.Sprintf("%s: %s on %s", CategorySyntax, syn.Message, text)
	}
	var qf *QueryFormatError
	if errors.As(err, &qf) {
		return fmt.Sprintf("%s: %s", CategoryFormat, qf.Error())
	}
	return err.Error()
}

// IsParseError reports whether err came from parsing (either category).
func IsParseError(err error) bool {
	var syn *SyntaxError
	var qf *QueryFormatError
	return errors.As(err, &syn) || errors.As(err, &qf)
}

// AsError converts any error into the structured Error form.
// Parse errors keep their category in Code; unknown errors become ErrInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var syn *SyntaxError
	if errors.As(err, &syn) {
		details := map[string]any{
			"line":   syn.Pos.Line,
			"column": syn.Pos.Column,
			"offset": syn.Pos.Offset,
		}
		if syn.Got != "" {
			details["got"] = syn.Got
		}
		if syn.Expected != "" {
			details["expected"] = syn.Expected
		}
		return &Error{Code: ErrSyntax, Message: Describe(err), Details: details}
	}
	var qf *QueryFormatError
	if errors.As(err, &qf) {
		return &Error{
			Code:    ErrFormat,
			Message: Describe(err),
			Details: map[string]any{"fields": qf.Fields},
		}
	}
	return &Error{Code: ErrInternal, Message: err.Error()}
}
