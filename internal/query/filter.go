package query

import (
	"strings"
	"time"

	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// BuildFilters translates the query's optional filters into an ordered list
// of predicate fragments. Every ambiguity is rejected, never silently
// dropped: unknown columns, a bbox without a geometry column, and a temporal
// filter without a timestamp column all fail with ErrInvalidParameter.
func BuildFilters(col domain.Collection, spec domain.QuerySpec) ([]db.Fragment, error) {
	var frags []db.Fragment

	if spec.BBox != nil {
		f, err := buildBBox(col, *spec.BBox)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}

	if spec.Datetime != nil {
		f, ok, err := buildTemporal(col, spec)
		if err != nil {
			return nil, err
		}
		if ok {
			frags = append(frags, f)
		}
	}

	for _, flt := range spec.Filters {
		f, err := buildEquality(col, flt)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}

	return frags, nil
}

func buildBBox(col domain.Collection, b domain.BBox) (db.Fragment, error) {
	if err := b.Validate(); err != nil {
		return db.Fragment{}, err
	}
	if col.GeometryColumn == "" {
		return db.Fragment{}, domain.InvalidParameter(
			"collection %q has no geometry column; bbox is not supported", col.ID)
	}
	return db.Frag(
		"ST_Intersects("+db.Ident(col.GeometryColumn)+", ST_MakeEnvelope(?, ?, ?, ?, 4326))",
		b.MinX, b.MinY, b.MaxX, b.MaxY,
	), nil
}

// buildTemporal resolves the timestamp column and emits the interval
// predicate. A single instant is treated as the whole-day window
// [instant, instant+24h), matching the upstream data convention regardless
// of the column's type. A fully open interval (../..) matches everything and
// emits no predicate.
func buildTemporal(col domain.Collection, spec domain.QuerySpec) (db.Fragment, bool, error) {
	column, err := resolveTimestampColumn(col, spec.DatetimeColumn)
	if err != nil {
		return db.Fragment{}, false, err
	}
	ident := db.Ident(column)
	iv := spec.Datetime

	switch {
	case iv.Instant && iv.Start != nil:
		dayEnd := iv.Start.Add(24 * time.Hour)
		return db.Frag(ident+" >= ? AND "+ident+" < ?", *iv.Start, dayEnd), true, nil
	case iv.Start != nil && iv.End != nil:
		return db.Frag(ident+" >= ? AND "+ident+" <= ?", *iv.Start, *iv.End), true, nil
	case iv.Start != nil:
		return db.Frag(ident+" >= ?", *iv.Start), true, nil
	case iv.End != nil:
		return db.Frag(ident+" <= ?", *iv.End), true, nil
	default:
		return db.Fragment{}, false, nil
	}
}

func resolveTimestampColumn(col domain.Collection, override string) (string, error) {
	if override != "" {
		if !col.HasColumn(override) {
			return "", domain.InvalidParameter(
				"datetime_property %q is not a column of collection %q", override, col.ID)
		}
		return override, nil
	}
	if len(col.TimestampColumns) == 0 {
		return "", domain.InvalidParameter(
			"collection %q has no timestamp column; datetime is not supported", col.ID)
	}
	return col.TimestampColumns[0], nil
}

func buildEquality(col domain.Collection, f domain.Filter) (db.Fragment, error) {
	if col.HasColumn(f.Key) {
		return db.Frag(db.Ident(f.Key)+" = ?", f.Value), nil
	}
	if col.Backend == domain.BackendDocumentTable && col.HasPropertyKey(f.Key) {
		// The property key is data, not an identifier, so it binds as a
		// parameter inside the JSON path.
		return db.Frag("content->'properties'->>? = ?", f.Key, f.Value), nil
	}
	return db.Fragment{}, domain.InvalidParameter(
		"unknown filter key %q for collection %q", f.Key, col.ID)
}

// OrderBy renders the ORDER BY clause. Sort entries must reference known
// columns; with no sort spec a stable default keeps pagination offsets
// deterministic: primary key ascending for typed tables, datetime descending
// then id for document tables.
func OrderBy(col domain.Collection, spec domain.QuerySpec) (string, error) {
	if len(spec.Sort) == 0 {
		return defaultOrder(col), nil
	}
	parts := make([]string, len(spec.Sort))
	for i, s := range spec.Sort {
		if !col.HasColumn(s.Column) {
			return "", domain.InvalidParameter(
				"sort column %q is not a column of collection %q", s.Column, col.ID)
		}
		dir := " ASC"
		if s.Desc {
			dir = " DESC"
		}
		parts[i] = db.Ident(s.Column) + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func defaultOrder(col domain.Collection) string {
	if col.Backend == domain.BackendDocumentTable {
		order := " ORDER BY "
		if col.HasColumn("datetime") {
			order += db.Ident("datetime") + " DESC, "
		}
		return order + db.Ident(col.PrimaryKey) + " ASC"
	}
	if col.PrimaryKey != "" {
		return " ORDER BY " + db.Ident(col.PrimaryKey) + " ASC"
	}
	if len(col.Columns) > 0 {
		return " ORDER BY " + db.Ident(col.Columns[0]) + " ASC"
	}
	return ""
}
