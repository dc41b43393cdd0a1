package query

import (
	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// documentTable composes queries for the shared JSON-document table. The
// page query merges the stored payload with synthesized fields so every row
// comes back as one complete item document.
type documentTable struct{}

func (documentTable) Compose(col domain.Collection, spec domain.QuerySpec) (Composed, error) {
	if err := checkDocument(col); err != nil {
		return Composed{}, err
	}

	// The partition predicate scopes every statement to this collection and
	// participates in the shared fragment list like any other filter.
	frags := []db.Fragment{
		db.Frag(db.Ident(col.PartitionColumn)+" = ?", col.ID),
	}
	userFrags, err := BuildFilters(col, spec)
	if err != nil {
		return Composed{}, err
	}
	frags = append(frags, userFrags...)

	order, err := OrderBy(col, spec)
	if err != nil {
		return Composed{}, err
	}

	var pb db.Builder
	pb.Raw("SELECT ")
	writeItemExpr(&pb, col, spec.Simplify, spec.Precision)
	pb.Raw(" AS item FROM " + db.Ident(col.Schema, col.Table))
	pb.Where(frags)
	pb.Raw(order)
	pb.Raw(" LIMIT " + pb.Bind(spec.Limit) + " OFFSET " + pb.Bind(spec.Offset))
	page, err := pb.Build()
	if err != nil {
		return Composed{}, domain.Schema("compose page query for %q: %v", col.ID, err)
	}

	var cb db.Builder
	cb.Raw("SELECT COUNT(*) FROM " + db.Ident(col.Schema, col.Table))
	cb.Where(frags)
	count, err := cb.Build()
	if err != nil {
		return Composed{}, domain.Schema("compose count query for %q: %v", col.ID, err)
	}

	return Composed{Page: page, Count: count}, nil
}

func (documentTable) ByID(col domain.Collection, id string, precision int) (db.Query, error) {
	if err := checkDocument(col); err != nil {
		return db.Query{}, err
	}

	var b db.Builder
	b.Raw("SELECT ")
	writeItemExpr(&b, col, 0, precision)
	b.Raw(" AS item FROM " + db.Ident(col.Schema, col.Table))
	b.Raw(" WHERE " + db.Ident(col.PartitionColumn) + " = " + b.Bind(col.ID))
	b.Raw(" AND " + db.Ident(col.PrimaryKey) + " = " + b.Bind(id) + " LIMIT 1")
	return b.Build()
}

func checkDocument(col domain.Collection) error {
	if col.PartitionColumn == "" {
		return domain.Schema("document-table collection %q resolved without a partition column", col.ID)
	}
	if col.PrimaryKey == "" {
		return domain.Schema("document-table collection %q resolved without an id column", col.ID)
	}
	return nil
}

// writeItemExpr emits the JSONB merge of the stored payload with the
// synthesized identifier, parent-collection reference, GeoJSON geometry and
// type discriminator. The payload merges first so the sidecar truth wins on
// key collisions.
func writeItemExpr(b *db.Builder, col domain.Collection, simplify float64, precision int) {
	b.Raw("content || jsonb_build_object('id', " + db.Ident(col.PrimaryKey) +
		", 'collection', " + db.Ident(col.PartitionColumn) +
		", 'geometry', ")
	if col.GeometryColumn != "" {
		writeGeometryExpr(b, col.GeometryColumn, simplify, precision)
		b.Raw("::jsonb")
	} else {
		b.Raw("'null'::jsonb")
	}
	b.Raw(", 'type', 'Feature', 'stac_version', COALESCE(content->>'stac_version', '1.0.0'))")
}
