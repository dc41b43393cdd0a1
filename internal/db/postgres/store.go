// Package postgres implements the db.Store contract over a pgx connection
// pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rob634/rmhogcapi/internal/db"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// Store is a pgxpool-backed db.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ db.Store = (*Store)(nil)

// NewStore creates a connection pool. Connections are established lazily;
// use Ping to verify reachability.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	// Password goes through URL escaping so special characters survive.
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Acquire checks out one connection for the duration of a request.
func (s *Store) Acquire(ctx context.Context) (db.Conn, error) {
	c, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpAcquire, Err: translate(err)}
	}
	return &conn{c: c}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: translate(err)}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

type conn struct {
	c *pgxpool.Conn
}

func (c *conn) Query(ctx context.Context, q db.Query) ([]db.Row, error) {
	rows, err := c.c.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: translate(err)}
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.Row, error) {
		return pgx.RowToMap(row)
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: translate(err)}
	}
	return out, nil
}

func (c *conn) QueryValue(ctx context.Context, q db.Query) (any, error) {
	var v any
	if err := c.c.QueryRow(ctx, q.SQL, q.Args...).Scan(&v); err != nil {
		return nil, &db.Error{Op: db.OpQueryValue, Err: translate(err)}
	}
	return v, nil
}

func (c *conn) Release() { c.c.Release() }

// queryCanceled is raised by the server when a statement deadline fires.
const queryCanceled = "57014"

// translate folds deadline-shaped failures into db.ErrTimeout so callers can
// classify them without importing the driver.
func translate(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return errors.Join(db.ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == queryCanceled {
		return errors.Join(db.ErrTimeout, err)
	}
	return err
}
