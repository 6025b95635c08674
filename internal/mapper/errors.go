package mapper

import (
	"fmt"

	"taskline/internal/document"
	"taskline/internal/domain"
)

// TypeCoercionError reports a value whose kind does not fit the entity field.
// It only occurs when a document skipped validation or the schema and mapper
// disagree.
type TypeCoercionError struct {
	Field document.Path
	Want  document.Kind
	Got   document.Kind
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("map %s: expected %s, got %s", e.Field, e.Want, e.Got)
}

// UnknownEnumValueError reports a value outside an enumerated domain.
type UnknownEnumValueError struct {
	Field document.Path
	Err   *domain.UnknownValueError
}

func (e *UnknownEnumValueError) Error() string {
	return fmt.Sprintf("map %s: %v", e.Field, e.Err)
}

func (e *UnknownEnumValueError) Unwrap() error { return e.Err }
