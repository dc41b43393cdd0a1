// Package catalog is the document-table backend: one shared items table
// holding complete JSON documents keyed by collection.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
	"github.com/rob634/rmhogcapi/internal/metrics"
	"github.com/rob634/rmhogcapi/internal/query"
)

// store is the consumer interface for per-request connections (ISP).
type store interface {
	Acquire(ctx context.Context) (db.Conn, error)
}

// Repo reads collection and item documents from the shared document tables.
type Repo struct {
	store   store
	schema  string
	timeout time.Duration
	log     *zap.Logger
}

// New creates a catalog repository reading from the given schema.
func New(s store, schema string, timeout time.Duration, log *zap.Logger) *Repo {
	return &Repo{store: s, schema: schema, timeout: timeout, log: log}
}

// Collections lists every collection document, each merged with its live
// item count.
func (r *Repo) Collections(ctx context.Context) ([]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, r.classify("collections", "", err)
	}
	defer conn.Release()

	sql := "SELECT c.content || jsonb_build_object('id', c.id, 'item_count', COUNT(i." +
		db.Ident(idColumn) + ")) AS collection FROM " + db.Ident(r.schema, "collections") +
		" c LEFT JOIN " + db.Ident(r.schema, itemsTable) + " i ON i." +
		db.Ident(partitionColumn) + " = c.id GROUP BY c.id, c.content ORDER BY c.id"

	rows, err := conn.Query(ctx, db.Query{SQL: sql})
	if err != nil {
		return nil, r.classify("collections", "", err)
	}

	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDocument(row["collection"])
		if err != nil {
			return nil, r.classify("collections", "", err)
		}
		out = append(out, doc)
	}
	return out, nil
}

// Collection returns one collection document merged with its item count.
func (r *Repo) Collection(ctx context.Context, id string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, r.classify("collection", id, err)
	}
	defer conn.Release()

	var b db.Builder
	b.Raw("SELECT c.content || jsonb_build_object('id', c.id, 'item_count', COUNT(i." +
		db.Ident(idColumn) + ")) AS collection FROM " + db.Ident(r.schema, "collections") +
		" c LEFT JOIN " + db.Ident(r.schema, itemsTable) + " i ON i." +
		db.Ident(partitionColumn) + " = c.id WHERE c.id = " + b.Bind(id) +
		" GROUP BY c.id, c.content")
	q, err := b.Build()
	if err != nil {
		return nil, domain.Schema("compose collection query for %q: %v", id, err)
	}

	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, r.classify("collection", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("collection %q: %w", id, domain.ErrCollectionNotFound)
	}
	return decodeDocument(rows[0]["collection"])
}

// Items runs the composed count and page queries and returns the page of
// item documents with its total match count.
func (r *Repo) Items(ctx context.Context, id string, spec domain.QuerySpec) (domain.PageResult[json.RawMessage], error) {
	var zero domain.PageResult[json.RawMessage]
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return zero, r.classify("items", id, err)
	}
	defer conn.Release()

	col, err := r.resolve(ctx, conn, id)
	if err != nil {
		return zero, r.classify("items", id, err)
	}

	composer, err := query.For(col.Backend)
	if err != nil {
		return zero, err
	}
	composed, err := composer.Compose(col, spec)
	if err != nil {
		return zero, err
	}

	total, err := conn.QueryValue(ctx, composed.Count)
	if err != nil {
		return zero, r.classify("count", id, err)
	}
	rows, err := conn.Query(ctx, composed.Page)
	if err != nil {
		return zero, r.classify("items", id, err)
	}

	items := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDocument(row["item"])
		if err != nil {
			return zero, r.classify("items", id, err)
		}
		items = append(items, doc)
	}

	metrics.ObserveQuery("stac", "items", time.Since(start))
	return domain.NewPageResult(items, toInt(total)), nil
}

// Item fetches a single item document by id within a collection.
func (r *Repo) Item(ctx context.Context, id, itemID string, precision int) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, r.classify("item", id, err)
	}
	defer conn.Release()

	col, err := r.resolve(ctx, conn, id)
	if err != nil {
		return nil, r.classify("item", id, err)
	}

	composer, err := query.For(col.Backend)
	if err != nil {
		return nil, err
	}
	q, err := composer.ByID(col, itemID, precision)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, r.classify("item", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("item %q in collection %q: %w", itemID, id, domain.ErrNotFound)
	}
	return decodeDocument(rows[0]["item"])
}

// classify maps store failures onto the domain taxonomy, mirroring the
// typed-table backend.
func (r *Repo) classify(op, collection string, err error) error {
	switch {
	case errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrSchema):
		return err
	case errors.Is(err, db.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %q: %w", op, collection, domain.ErrQueryTimeout)
	default:
		r.log.Error("catalog query failed",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Error(err))
		return fmt.Errorf("%s %q: %w", op, collection, domain.ErrExecution)
	}
}

// decodeDocument normalizes however the driver surfaced a jsonb value into
// raw JSON bytes, re-encoding decoded maps when necessary.
func decodeDocument(v any) (json.RawMessage, error) {
	switch doc := v.(type) {
	case []byte:
		return json.RawMessage(doc), nil
	case string:
		return json.RawMessage(doc), nil
	case nil:
		return nil, fmt.Errorf("document column is null: %w", domain.ErrExecution)
	default:
		buf, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("re-encode document: %w", domain.ErrExecution)
		}
		return json.RawMessage(buf), nil
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
