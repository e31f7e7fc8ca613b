// Package domain holds the error vocabulary and input/output validation
// shared by the query pipeline.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrNotCypher     = errors.New("not a cypher query")
	ErrWriteClause   = errors.New("query contains a write clause")
	ErrUnknownSchema = errors.New("query references an unknown label or relationship")
	ErrNotReady      = errors.New("system not initialized")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
