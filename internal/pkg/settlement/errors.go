package settlement

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPatch rejects updates that change nothing.
var ErrEmptyPatch = errors.New("at least one field required")

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level detail, safe to return to the caller.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func validationError(fields ...FieldError) error {
	return &ValidationError{Fields: fields}
}
