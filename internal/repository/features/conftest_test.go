package features

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rob634/rmhogcapi/internal/db"
)

// mockConn implements db.Conn with function fields.
type mockConn struct {
	queryFn      func(ctx context.Context, q db.Query) ([]db.Row, error)
	queryValueFn func(ctx context.Context, q db.Query) (any, error)
	released     bool
}

func (m *mockConn) Query(ctx context.Context, q db.Query) ([]db.Row, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, q)
	}
	return nil, nil
}

func (m *mockConn) QueryValue(ctx context.Context, q db.Query) (any, error) {
	if m.queryValueFn != nil {
		return m.queryValueFn(ctx, q)
	}
	return int64(0), nil
}

func (m *mockConn) Release() { m.released = true }

// mockStore implements the consumer interface for tests.
type mockStore struct {
	conn      *mockConn
	acquireFn func(ctx context.Context) (db.Conn, error)
}

func (m *mockStore) Acquire(ctx context.Context) (db.Conn, error) {
	if m.acquireFn != nil {
		return m.acquireFn(ctx)
	}
	return m.conn, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockConn) {
	t.Helper()
	conn := &mockConn{}
	repo := New(&mockStore{conn: conn}, "geo", "geom", time.Second, zap.NewNop())
	return repo, conn
}

// introspectionRows answers the catalog metadata queries for a healthy
// "roads" table; returns nil for anything else.
func introspectionRows(q db.Query) []db.Row {
	switch {
	case strings.Contains(q.SQL, "information_schema.columns"):
		return []db.Row{
			{"column_name": "id"},
			{"column_name": "name"},
			{"column_name": "created_at"},
			{"column_name": "geom"},
		}
	case strings.Contains(q.SQL, "geometry_columns"):
		return []db.Row{
			{"f_geometry_column": "geom", "type": "LINESTRING", "srid": int32(4326)},
		}
	case strings.Contains(q.SQL, "pg_index "):
		return []db.Row{{"column_name": "id"}}
	case strings.Contains(q.SQL, "pg_indexes"):
		return []db.Row{{"indexdef": `CREATE INDEX roads_geom_idx ON geo.roads USING gist (geom)`}}
	default:
		return nil
	}
}
