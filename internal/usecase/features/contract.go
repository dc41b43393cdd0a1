package features

import (
	"context"

	"github.com/rob634/rmhogcapi/internal/domain"
)

// Repository defines the storage contract for the typed-table API.
type Repository interface {
	List(ctx context.Context) ([]domain.CollectionSummary, error)
	Detail(ctx context.Context, id string) (domain.CollectionDetail, error)
	Query(ctx context.Context, id string, spec domain.QuerySpec) (domain.PageResult[domain.Feature], error)
	Get(ctx context.Context, id, featureID string, precision int) (domain.Feature, error)
}
