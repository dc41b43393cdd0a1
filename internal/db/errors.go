package db

import "errors"

// ErrTimeout marks a query or acquire that exceeded its deadline. Drivers
// wrap deadline-shaped failures with it so callers can classify without
// driver imports.
var ErrTimeout = errors.New("db: deadline exceeded")

// Op constants name the store operations for error context.
const (
	OpAcquire    = "acquire"
	OpQuery      = "query"
	OpQueryValue = "query value"
	OpPing       = "ping"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
