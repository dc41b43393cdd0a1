// Package db defines the narrow database contract the repositories consume
// and the identifier-safe SQL composition primitives they build queries with.
package db

import "context"

// Row is one decoded result row keyed by column name.
type Row map[string]any

// Conn is a single database connection scoped to one request. Release must
// be called on every exit path.
type Conn interface {
	Query(ctx context.Context, q Query) ([]Row, error)
	// QueryValue runs a query expected to yield exactly one row with one
	// column and returns that value.
	QueryValue(ctx context.Context, q Query) (any, error)
	Release()
}

// Store provides connection-scoped database access.
type Store interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}
