package domain

// Backend is the storage shape of a collection.
type Backend string

const (
	// BackendTypedTable stores each collection as its own relational table
	// with typed columns and a registered geometry column.
	BackendTypedTable Backend = "typed-table"
	// BackendDocumentTable stores heterogeneous records as JSON documents in
	// one shared table, discriminated by a partition column.
	BackendDocumentTable Backend = "document-table"
)

// Collection is the resolved, per-request metadata of one queryable set of
// spatial records. It is rebuilt on every request and never cached.
type Collection struct {
	ID      string
	Backend Backend

	// Schema is the database schema the collection lives in.
	Schema string
	// Table is the backing table: the collection's own table for
	// typed-table backends, the shared document table otherwise.
	Table string

	// GeometryColumn is empty when the backend has no geometry sidecar.
	GeometryColumn string
	GeometryType   string
	SRID           int

	// TimestampColumns are temporal-filter candidates in table-definition
	// order. The first one is the default datetime property.
	TimestampColumns []string

	// PrimaryKey is empty when the table declares none.
	PrimaryKey string

	// Columns lists all column names in table-definition order.
	Columns []string

	// PropertyKeys is the flattened document property set, populated for
	// document-table backends only.
	PropertyKeys []string

	// PartitionColumn discriminates documents by collection; empty for
	// typed-table backends.
	PartitionColumn string

	// HasSpatialIndex reports a GIST index on the geometry column. Advisory
	// only, never blocks execution.
	HasSpatialIndex bool
}

// CollectionSummary is one entry of a collection listing, built from the
// geometry registry without resolving the full table schema.
type CollectionSummary struct {
	ID             string
	GeometryColumn string
	GeometryType   string
	SRID           int
}

// CollectionDetail is the fully resolved metadata of one collection plus
// its live statistics.
type CollectionDetail struct {
	Collection   Collection
	Extent       *BBox
	FeatureCount int
}

// HasColumn reports whether name is a real column of the backing table.
func (c Collection) HasColumn(name string) bool {
	for _, col := range c.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// HasPropertyKey reports whether name is in the flattened property set.
func (c Collection) HasPropertyKey(name string) bool {
	for _, k := range c.PropertyKeys {
		if k == name {
			return true
		}
	}
	return false
}
