package schema

import (
	"errors"
	"fmt"
	"strings"

	"taskline/internal/document"
)

var (
	ErrSchemaNotFound = errors.New("schema not found")
	ErrSchemaParse    = errors.New("invalid schema")
)

// NotFoundError reports a schema reference that does not resolve to a resource.
type NotFoundError struct {
	Ref string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task schema %s not found", e.Ref)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrSchemaNotFound }

func (e *NotFoundError) Unwrap() error { return e.Err }

// ParseError reports schema bytes that are not a usable schema document.
// Pointer is the JSON pointer of the offending sub-schema, when known.
type ParseError struct {
	Ref     string
	Pointer string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("task schema %s: %s: %v", e.Ref, e.Pointer, e.Err)
	}
	return fmt.Sprintf("task schema %s: %v", e.Ref, e.Err)
}

func (e *ParseError) Is(target error) bool { return target == ErrSchemaParse }

func (e *ParseError) Unwrap() error { return e.Err }

// ViolationKind names the schema keyword a value failed.
type ViolationKind string

const (
	KindRequired   ViolationKind = "required"
	KindType       ViolationKind = "type"
	KindEnum       ViolationKind = "enum"
	KindFormat     ViolationKind = "format"
	KindMinLength  ViolationKind = "minLength"
	KindMaxLength  ViolationKind = "maxLength"
	KindPattern    ViolationKind = "pattern"
	KindMinimum    ViolationKind = "minimum"
	KindMaximum    ViolationKind = "maximum"
	KindMinItems   ViolationKind = "minItems"
	KindMaxItems   ViolationKind = "maxItems"
	KindAdditional ViolationKind = "additionalProperties"
)

// Violation is one failed constraint.
type Violation struct {
	Path    document.Path `json:"path"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ValidationFailure lists every violation found in a document. It always
// holds at least one.
type ValidationFailure struct {
	Violations []Violation
}

func (f *ValidationFailure) Error() string {
	if len(f.Violations) == 1 {
		return "validation failed: " + f.Violations[0].String()
	}
	parts := make([]string, len(f.Violations))
	for i, v := range f.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("validation failed with %d violations: %s", len(f.Violations), strings.Join(parts, "; "))
}

// Has reports whether a violation of kind exists at path.
func (f *ValidationFailure) Has(path document.Path, kind ViolationKind) bool {
	for _, v := range f.Violations {
		if v.Path == path && v.Kind == kind {
			return true
		}
	}
	return false
}
