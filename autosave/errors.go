package autosave

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrFormNotFound is returned by form providers for unknown forms or records
var ErrFormNotFound = errors.New("form not found")

// ValidationError carries field-level failures raised while loading posted
// values or by the submit hook
type ValidationError struct {
	Errors map[string]string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: map[string]string{field: message}}
}

// Add records another field failure
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Errors == nil {
		e.Errors = make(map[string]string)
	}
	e.Errors[field] = message
	return e
}

// Fields returns the failing field names, sorted
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, field := range e.Fields() {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Errors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UnboundFieldError reports a validation failure for a field the form has no
// control for. It cannot be shown in the form and is left to the caller.
type UnboundFieldError struct {
	Field string
	Err   *ValidationError
}

func (e *UnboundFieldError) Error() string {
	return fmt.Sprintf("field %q has no control to show the error on: %v", e.Field, e.Err)
}

func (e *UnboundFieldError) Unwrap() error {
	return e.Err
}
