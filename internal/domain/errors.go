package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrNotFound signals a missing feature or item.
	ErrNotFound = errors.New("not found")
	// ErrInvalidParameter signals a caller-supplied filter or pagination
	// value that failed validation.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrSchema signals an inconsistency between resolved collection
	// metadata and the query being composed.
	ErrSchema = errors.New("schema error")
	// ErrQueryTimeout signals that the database did not respond within the
	// request-scoped deadline.
	ErrQueryTimeout = errors.New("query timeout")
	// ErrExecution signals any other database failure.
	ErrExecution = errors.New("execution error")
)

// ParameterError wraps ErrInvalidParameter with a human-readable reason.
type ParameterError struct {
	Reason string
}

func (e *ParameterError) Error() string {
	return ErrInvalidParameter.Error() + ": " + e.Reason
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// InvalidParameter creates a parameter error with a formatted reason.
func InvalidParameter(format string, args ...any) error {
	return &ParameterError{Reason: fmt.Sprintf(format, args...)}
}

// SchemaError wraps ErrSchema with diagnostic detail.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return ErrSchema.Error() + ": " + e.Detail
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Schema creates a schema error with a formatted detail message.
func Schema(format string, args ...any) error {
	return &SchemaError{Detail: fmt.Sprintf(format, args...)}
}
