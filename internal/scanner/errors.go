package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrExpectedOpenBracket indicates the statement has no '[' after the identifier
	ErrExpectedOpenBracket = errors.New("expected '['")

	// ErrExpectedCloseBracket indicates the size expression is not closed by ']'
	ErrExpectedCloseBracket = errors.New("expected ']'")

	// ErrExpectedAssign indicates the declaration has no '=' initializer
	ErrExpectedAssign = errors.New("expected '='")

	// ErrExpectedOpenBrace indicates the initializer does not start with '{'
	ErrExpectedOpenBrace = errors.New("expected '{'")

	// ErrMissingType indicates a declaration attempt without a type name
	ErrMissingType = errors.New("missing type name")

	// ErrMissingIdentifier indicates a declaration attempt without an identifier
	ErrMissingIdentifier = errors.New("invalid identifier")
)

// ParseError attaches a source location to a statement-local parse failure.
type ParseError struct {
	Err    error
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Err, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
