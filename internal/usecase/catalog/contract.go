package catalog

import (
	"context"
	"encoding/json"

	"github.com/rob634/rmhogcapi/internal/domain"
)

// Repository defines the storage contract for the document-table API.
type Repository interface {
	Collections(ctx context.Context) ([]json.RawMessage, error)
	Collection(ctx context.Context, id string) (json.RawMessage, error)
	Items(ctx context.Context, id string, spec domain.QuerySpec) (domain.PageResult[json.RawMessage], error)
	Item(ctx context.Context, id, itemID string, precision int) (json.RawMessage, error)
}
