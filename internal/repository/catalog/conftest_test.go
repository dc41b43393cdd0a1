package catalog

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
	repo := New(&mockStore{conn: conn}, "pgstac", time.Second, zap.NewNop())
	return repo, conn
}

// resolutionRows answers the existence and shape queries for a known
// collection; returns nil for anything else.
func resolutionRows(q db.Query) []db.Row {
	switch {
	case strings.Contains(q.SQL, `FROM "pgstac"."collections" WHERE`):
		return []db.Row{{"id": "sentinel-2-l2a"}}
	case strings.Contains(q.SQL, "information_schema.columns"):
		return []db.Row{
			{"column_name": "id"},
			{"column_name": "collection"},
			{"column_name": "datetime"},
			{"column_name": "geometry"},
			{"column_name": "content"},
		}
	case strings.Contains(q.SQL, "jsonb_object_keys"):
		return []db.Row{{"key": "cloud_cover"}, {"key": "platform"}}
	default:
		return nil
	}
}
