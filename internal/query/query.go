// Package query turns a validated QuerySpec and a resolved Collection into
// executable SQL. It is pure: no I/O, no connection handling. Identifiers go
// through db.Ident, values through bound parameters, and the count and page
// statements of a composition share one fragment list so their filters can
// never diverge.
package query

import (
	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// Composed pairs the page query with the total-count query for the same
// filters.
type Composed struct {
	Page  db.Query
	Count db.Query
}

// Composer builds executable statements for one backend shape.
type Composer interface {
	// Compose builds the page and count queries for a filtered listing.
	Compose(col domain.Collection, spec domain.QuerySpec) (Composed, error)
	// ByID builds the single-resource lookup query.
	ByID(col domain.Collection, id string, precision int) (db.Query, error)
}

// For selects the composition strategy for a backend kind.
func For(b domain.Backend) (Composer, error) {
	switch b {
	case domain.BackendTypedTable:
		return typedTable{}, nil
	case domain.BackendDocumentTable:
		return documentTable{}, nil
	default:
		return nil, domain.Schema("unknown backend kind %q", b)
	}
}
