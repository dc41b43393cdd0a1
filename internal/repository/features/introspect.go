package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// Catalog metadata queries. Identifiers never appear in these statements;
// schema and table names are ordinary bound values against the catalog
// views.
const (
	sqlTableColumns = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`

	sqlGeometryColumns = `SELECT f_geometry_column, type, srid FROM geometry_columns
		WHERE f_table_schema = $1 AND f_table_name = $2 ORDER BY f_geometry_column`

	sqlPrimaryKey = `SELECT a.attname AS column_name
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary
		ORDER BY a.attnum LIMIT 1`

	sqlIndexDefs = `SELECT indexdef FROM pg_indexes
		WHERE schemaname = $1 AND tablename = $2`
)

// timestampPatterns select temporal-filter candidates by column name.
var timestampPatterns = []string{"date", "time", "created", "updated"}

// resolve builds the Collection record for one table, fresh on every
// request. A table with no columns does not exist; a table whose geometry
// registration is missing or ambiguous is a schema fault, not a caller
// fault.
func (r *Repo) resolve(ctx context.Context, conn db.Conn, id string) (domain.Collection, error) {
	columns, err := r.tableColumns(ctx, conn, id)
	if err != nil {
		return domain.Collection{}, err
	}
	if len(columns) == 0 {
		return domain.Collection{}, fmt.Errorf("collection %q: %w", id, domain.ErrCollectionNotFound)
	}

	geomColumn, geomType, srid, err := r.resolveGeometry(ctx, conn, id)
	if err != nil {
		return domain.Collection{}, err
	}

	pk, err := r.primaryKey(ctx, conn, id)
	if err != nil {
		return domain.Collection{}, err
	}

	hasIndex, err := r.hasSpatialIndex(ctx, conn, id, geomColumn)
	if err != nil {
		return domain.Collection{}, err
	}

	return domain.Collection{
		ID:               id,
		Backend:          domain.BackendTypedTable,
		Schema:           r.schema,
		Table:            id,
		GeometryColumn:   geomColumn,
		GeometryType:     geomType,
		SRID:             srid,
		TimestampColumns: timestampCandidates(columns),
		PrimaryKey:       pk,
		Columns:          columns,
		HasSpatialIndex:  hasIndex,
	}, nil
}

func (r *Repo) tableColumns(ctx context.Context, conn db.Conn, table string) ([]string, error) {
	rows, err := conn.Query(ctx, db.Query{SQL: sqlTableColumns, Args: []any{r.schema, table}})
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, rowString(row, "column_name"))
	}
	return columns, nil
}

// resolveGeometry picks the geometry column from the registered set: the
// configured default name when registered, otherwise the sole registration.
// None or several without the default is ambiguous.
func (r *Repo) resolveGeometry(ctx context.Context, conn db.Conn, table string) (string, string, int, error) {
	rows, err := conn.Query(ctx, db.Query{SQL: sqlGeometryColumns, Args: []any{r.schema, table}})
	if err != nil {
		return "", "", 0, err
	}

	pick := -1
	for i, row := range rows {
		if rowString(row, "f_geometry_column") == r.geometryColumn {
			pick = i
			break
		}
	}
	if pick < 0 && len(rows) == 1 {
		pick = 0
	}
	if pick < 0 {
		return "", "", 0, domain.Schema(
			"table %q has %d registered geometry columns and none named %q",
			table, len(rows), r.geometryColumn)
	}

	row := rows[pick]
	return rowString(row, "f_geometry_column"), rowString(row, "type"), rowInt(row, "srid"), nil
}

func (r *Repo) primaryKey(ctx context.Context, conn db.Conn, table string) (string, error) {
	regclass := db.Ident(r.schema, table)
	rows, err := conn.Query(ctx, db.Query{SQL: sqlPrimaryKey, Args: []any{regclass}})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rowString(rows[0], "column_name"), nil
}

// hasSpatialIndex inspects index definitions for a GIST index covering the
// geometry column. Absence is advisory only.
func (r *Repo) hasSpatialIndex(ctx context.Context, conn db.Conn, table, geomColumn string) (bool, error) {
	rows, err := conn.Query(ctx, db.Query{SQL: sqlIndexDefs, Args: []any{r.schema, table}})
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		def := strings.ToLower(rowString(row, "indexdef"))
		if strings.Contains(def, "using gist") && strings.Contains(def, strings.ToLower(geomColumn)) {
			return true, nil
		}
	}
	return false, nil
}

func timestampCandidates(columns []string) []string {
	var out []string
	for _, c := range columns {
		lower := strings.ToLower(c)
		for _, pat := range timestampPatterns {
			if strings.Contains(lower, pat) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func rowString(row db.Row, key string) string {
	s, _ := row[key].(string)
	return s
}

func rowInt(row db.Row, key string) int {
	switch v := row[key].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
