package query

import (
	"strings"

	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// typedTable composes queries for collections stored as their own relational
// tables. The page query selects every non-geometry column plus the geometry
// serialized to GeoJSON in-database.
type typedTable struct{}

func (typedTable) Compose(col domain.Collection, spec domain.QuerySpec) (Composed, error) {
	if err := checkTyped(col); err != nil {
		return Composed{}, err
	}

	frags, err := BuildFilters(col, spec)
	if err != nil {
		return Composed{}, err
	}
	order, err := OrderBy(col, spec)
	if err != nil {
		return Composed{}, err
	}

	var pb db.Builder
	pb.Raw("SELECT " + selectColumns(col) + ", ")
	writeGeometryExpr(&pb, col.GeometryColumn, spec.Simplify, spec.Precision)
	pb.Raw(" AS geometry FROM " + db.Ident(col.Schema, col.Table))
	pb.Where(frags)
	pb.Raw(order)
	pb.Raw(" LIMIT " + pb.Bind(spec.Limit) + " OFFSET " + pb.Bind(spec.Offset))
	page, err := pb.Build()
	if err != nil {
		return Composed{}, domain.Schema("compose page query for %q: %v", col.ID, err)
	}

	// The count query reuses the exact fragment list, so both statements
	// reflect identical filters by construction.
	var cb db.Builder
	cb.Raw("SELECT COUNT(*) FROM " + db.Ident(col.Schema, col.Table))
	cb.Where(frags)
	count, err := cb.Build()
	if err != nil {
		return Composed{}, domain.Schema("compose count query for %q: %v", col.ID, err)
	}

	return Composed{Page: page, Count: count}, nil
}

func (typedTable) ByID(col domain.Collection, id string, precision int) (db.Query, error) {
	if err := checkTyped(col); err != nil {
		return db.Query{}, err
	}
	if col.PrimaryKey == "" {
		return db.Query{}, domain.InvalidParameter(
			"collection %q has no primary key; retrieval by id is not supported", col.ID)
	}

	var b db.Builder
	b.Raw("SELECT " + selectColumns(col) + ", ")
	writeGeometryExpr(&b, col.GeometryColumn, 0, precision)
	b.Raw(" AS geometry FROM " + db.Ident(col.Schema, col.Table))
	b.Raw(" WHERE " + db.Ident(col.PrimaryKey) + " = " + b.Bind(id) + " LIMIT 1")
	return b.Build()
}

// checkTyped guards the structural invariants the introspector is expected
// to have established.
func checkTyped(col domain.Collection) error {
	if col.GeometryColumn == "" {
		return domain.Schema("typed-table collection %q resolved without a geometry column", col.ID)
	}
	if !col.HasColumn(col.GeometryColumn) {
		return domain.Schema("geometry column %q is not a column of %q", col.GeometryColumn, col.ID)
	}
	return nil
}

func selectColumns(col domain.Collection) string {
	parts := make([]string, 0, len(col.Columns))
	for _, c := range col.Columns {
		if c == col.GeometryColumn {
			continue
		}
		parts = append(parts, db.Ident(c))
	}
	return strings.Join(parts, ", ")
}

// writeGeometryExpr emits ST_AsGeoJSON over the geometry column at the
// requested precision, simplifying first when a positive tolerance is given.
func writeGeometryExpr(b *db.Builder, geomColumn string, simplify float64, precision int) {
	ident := db.Ident(geomColumn)
	if simplify > 0 {
		b.Raw("ST_AsGeoJSON(ST_Simplify(" + ident + ", " + b.Bind(simplify) + "), " + b.Bind(precision) + ")")
		return
	}
	b.Raw("ST_AsGeoJSON(" + ident + ", " + b.Bind(precision) + ")")
}
