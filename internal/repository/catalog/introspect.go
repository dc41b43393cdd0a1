package catalog

import (
	"context"
	"fmt"

	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// The document backend stores every item in one shared table partitioned by
// collection id, with the payload in a jsonb column. Its shape is fixed, so
// resolution only has to confirm the collection exists and discover which of
// the optional sidecar columns the deployment carries.

const (
	itemsTable      = "items"
	idColumn        = "id"
	partitionColumn = "collection"
	payloadColumn   = "content"
	geometryColumn  = "geometry"
	datetimeColumn  = "datetime"
)

const sqlItemsColumns = `SELECT column_name FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`

const sqlPropertyKeys = `SELECT DISTINCT jsonb_object_keys(content->'properties') AS key
	FROM %s WHERE %s = $1 ORDER BY key`

// resolve confirms the collection exists and builds its document-table
// description from the items table's actual columns.
func (r *Repo) resolve(ctx context.Context, conn db.Conn, id string) (domain.Collection, error) {
	var zero domain.Collection

	var eb db.Builder
	eb.Raw("SELECT " + db.Ident(idColumn) + " FROM " + db.Ident(r.schema, "collections") +
		" WHERE " + db.Ident(idColumn) + " = " + eb.Bind(id))
	exists, err := eb.Build()
	if err != nil {
		return zero, domain.Schema("compose existence query for %q: %v", id, err)
	}
	rows, err := conn.Query(ctx, exists)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, fmt.Errorf("collection %q: %w", id, domain.ErrCollectionNotFound)
	}

	cols, err := conn.Query(ctx, db.Query{SQL: sqlItemsColumns, Args: []any{r.schema, itemsTable}})
	if err != nil {
		return zero, err
	}

	col := domain.Collection{
		ID:              id,
		Backend:         domain.BackendDocumentTable,
		Schema:          r.schema,
		Table:           itemsTable,
		PrimaryKey:      idColumn,
		PartitionColumn: partitionColumn,
		Columns:         make([]string, 0, len(cols)),
	}
	for _, row := range cols {
		name := rowString(row, "column_name")
		col.Columns = append(col.Columns, name)
		switch name {
		case geometryColumn:
			col.GeometryColumn = geometryColumn
		case datetimeColumn:
			col.TimestampColumns = append(col.TimestampColumns, datetimeColumn)
		}
	}
	if len(col.Columns) == 0 {
		return zero, domain.Schema("items table %q.%q has no columns", r.schema, itemsTable)
	}

	keys, err := conn.Query(ctx, db.Query{
		SQL:  fmt.Sprintf(sqlPropertyKeys, db.Ident(r.schema, itemsTable), db.Ident(partitionColumn)),
		Args: []any{id},
	})
	if err != nil {
		return zero, err
	}
	col.PropertyKeys = make([]string, 0, len(keys))
	for _, row := range keys {
		col.PropertyKeys = append(col.PropertyKeys, rowString(row, "key"))
	}

	return col, nil
}

func rowString(row db.Row, key string) string {
	if s, ok := row[key].(string); ok {
		return s
	}
	return ""
}
