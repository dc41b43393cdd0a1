// Package features is the typed-table backend: one relational table per
// collection, introspected fresh on every request.
package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
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

// Repo resolves collection schemas and executes composed queries against the
// vector schema.
type Repo struct {
	store          store
	schema         string
	geometryColumn string
	timeout        time.Duration
	log            *zap.Logger
}

// New creates a features repository. geometryColumn is the preferred
// geometry column name; timeout bounds every request's database work.
func New(s store, schema, geometryColumn string, timeout time.Duration, log *zap.Logger) *Repo {
	return &Repo{
		store:          s,
		schema:         schema,
		geometryColumn: geometryColumn,
		timeout:        timeout,
		log:            log,
	}
}

const sqlListCollections = `SELECT f_table_name, f_geometry_column, type, srid
	FROM geometry_columns WHERE f_table_schema = $1 ORDER BY f_table_name`

// List returns every table with a registered geometry column in the schema.
func (r *Repo) List(ctx context.Context) ([]domain.CollectionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, r.classify("list", "", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, db.Query{SQL: sqlListCollections, Args: []any{r.schema}})
	if err != nil {
		return nil, r.classify("list", "", err)
	}

	out := make([]domain.CollectionSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.CollectionSummary{
			ID:             rowString(row, "f_table_name"),
			GeometryColumn: rowString(row, "f_geometry_column"),
			GeometryType:   rowString(row, "type"),
			SRID:           rowInt(row, "srid"),
		})
	}
	return out, nil
}

// Detail resolves one collection and adds its spatial extent and feature
// count.
func (r *Repo) Detail(ctx context.Context, id string) (domain.CollectionDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return domain.CollectionDetail{}, r.classify("detail", id, err)
	}
	defer conn.Release()

	col, err := r.resolve(ctx, conn, id)
	if err != nil {
		return domain.CollectionDetail{}, r.classify("detail", id, err)
	}

	var b db.Builder
	b.Raw("SELECT ST_Extent(" + db.Ident(col.GeometryColumn) + ") AS extent, COUNT(*) AS feature_count FROM " +
		db.Ident(col.Schema, col.Table))
	stats, err := b.Build()
	if err != nil {
		return domain.CollectionDetail{}, domain.Schema("compose stats query for %q: %v", id, err)
	}

	rows, err := conn.Query(ctx, stats)
	if err != nil {
		return domain.CollectionDetail{}, r.classify("detail", id, err)
	}

	detail := domain.CollectionDetail{Collection: col}
	if len(rows) > 0 {
		detail.Extent = parseExtent(rowString(rows[0], "extent"))
		detail.FeatureCount = rowInt(rows[0], "feature_count")
	}
	return detail, nil
}

// Query runs the composed count and page queries on one connection and
// returns the page of features with its total match count.
func (r *Repo) Query(ctx context.Context, id string, spec domain.QuerySpec) (domain.PageResult[domain.Feature], error) {
	var zero domain.PageResult[domain.Feature]
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

	items := make([]domain.Feature, 0, len(rows))
	for _, row := range rows {
		items = append(items, decodeFeature(row, col))
	}

	metrics.ObserveQuery("features", "items", time.Since(start))
	return domain.NewPageResult(items, toInt(total)), nil
}

// Get fetches a single feature by primary key value.
func (r *Repo) Get(ctx context.Context, id, featureID string, precision int) (domain.Feature, error) {
	var zero domain.Feature

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.store.Acquire(ctx)
	if err != nil {
		return zero, r.classify("feature", id, err)
	}
	defer conn.Release()

	col, err := r.resolve(ctx, conn, id)
	if err != nil {
		return zero, r.classify("feature", id, err)
	}

	composer, err := query.For(col.Backend)
	if err != nil {
		return zero, err
	}
	q, err := composer.ByID(col, featureID, precision)
	if err != nil {
		return zero, err
	}

	rows, err := conn.Query(ctx, q)
	if err != nil {
		return zero, r.classify("feature", id, err)
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("feature %q in collection %q: %w", featureID, id, domain.ErrNotFound)
	}
	return decodeFeature(rows[0], col), nil
}

// classify maps store failures onto the domain taxonomy. Domain errors pass
// through untouched; deadline-shaped failures become QueryTimeout; anything
// else is an execution fault logged with its query context but never its
// bound values.
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
		r.log.Error("features query failed",
			zap.String("op", op),
			zap.String("collection", collection),
			zap.Error(err))
		return fmt.Errorf("%s %q: %w", op, collection, domain.ErrExecution)
	}
}

// decodeFeature reshapes a page row into a GeoJSON feature. The serialized
// geometry passes through verbatim; every other column becomes a property.
func decodeFeature(row db.Row, col domain.Collection) domain.Feature {
	f := domain.Feature{
		Type:       "Feature",
		Properties: make(map[string]any, len(row)),
	}
	for k, v := range row {
		if k == "geometry" {
			if s, ok := v.(string); ok && s != "" {
				f.Geometry = json.RawMessage(s)
			}
			continue
		}
		if k == col.GeometryColumn {
			continue
		}
		f.Properties[k] = v
	}
	if col.PrimaryKey != "" {
		f.ID = row[col.PrimaryKey]
	}
	return f
}

// parseExtent converts a PostGIS BOX string to a bbox.
func parseExtent(extent string) *domain.BBox {
	extent = strings.TrimPrefix(extent, "BOX(")
	extent = strings.TrimSuffix(extent, ")")
	lo, hi, ok := strings.Cut(extent, ",")
	if !ok {
		return nil
	}
	minX, minY, ok1 := parsePoint(lo)
	maxX, maxY, ok2 := parsePoint(hi)
	if !ok1 || !ok2 {
		return nil
	}
	return &domain.BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func parsePoint(s string) (float64, float64, bool) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return 0, 0, false
	}
	x, err1 := strconv.ParseFloat(fields[0], 64)
	y, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return x, y, true
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
