package query

import "github.com/rob634/rmhogcapi/internal/domain"

// typedCollection is a resolved relational collection fixture.
func typedCollection() domain.Collection {
	return domain.Collection{
		ID:               "roads",
		Backend:          domain.BackendTypedTable,
		Schema:           "geo",
		Table:            "roads",
		GeometryColumn:   "geom",
		GeometryType:     "LINESTRING",
		SRID:             4326,
		PrimaryKey:       "id",
		Columns:          []string{"id", "name", "status", "created_at", "updated_at", "geom"},
		TimestampColumns: []string{"created_at", "updated_at"},
		HasSpatialIndex:  true,
	}
}

// documentCollection is a resolved document-table collection fixture.
func documentCollection() domain.Collection {
	return domain.Collection{
		ID:               "sentinel-2-l2a",
		Backend:          domain.BackendDocumentTable,
		Schema:           "pgstac",
		Table:            "items",
		GeometryColumn:   "geometry",
		PrimaryKey:       "id",
		PartitionColumn:  "collection",
		Columns:          []string{"id", "collection", "datetime", "geometry", "content"},
		TimestampColumns: []string{"datetime"},
		PropertyKeys:     []string{"cloud_cover", "platform"},
	}
}
