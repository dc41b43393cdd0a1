// Package features shapes typed-table query results into the vector
// features API's response documents.
package features

import (
	"context"
	"fmt"
	"time"

	"github.com/rob634/rmhogcapi/internal/domain"
)

// Conformance classes implemented by the features API.
var conformanceClasses = []string{
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson",
}

const crs84 = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"

// Landing is the API root document.
type Landing struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Links       []domain.Link `json:"links"`
}

// Conformance lists the implemented conformance classes.
type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// CollectionDoc describes one collection to API clients.
type CollectionDoc struct {
	ID          string        `json:"id"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	ItemType    string        `json:"itemType"`
	Extent      *Extent       `json:"extent,omitempty"`
	CRS         []string      `json:"crs,omitempty"`
	StorageCRS  string        `json:"storageCrs,omitempty"`
	// Columns accepted by the datetime and datetime_property parameters.
	DatetimeColumns []string      `json:"datetimeColumns,omitempty"`
	Links           []domain.Link `json:"links"`
}

// Collections wraps the collection listing with its navigation links.
type Collections struct {
	Collections []CollectionDoc `json:"collections"`
	Links       []domain.Link   `json:"links"`
}

// Extent is the spatial envelope of a collection.
type Extent struct {
	Spatial *SpatialExtent `json:"spatial,omitempty"`
}

// SpatialExtent holds one or more bounding boxes in the named CRS.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
	CRS  string      `json:"crs,omitempty"`
}

// Service assembles features API documents from repository results.
type Service struct {
	repo        Repository
	title       string
	description string
}

// New creates a features service.
func New(repo Repository, title, description string) *Service {
	return &Service{repo: repo, title: title, description: description}
}

// Landing builds the API root document for the given base URL.
func (s *Service) Landing(base string) Landing {
	return Landing{
		Title:       s.title,
		Description: s.description,
		Links: []domain.Link{
			{Href: base, Rel: domain.RelSelf, Type: domain.MediaJSON, Title: "Landing page"},
			{Href: base + "/collections", Rel: domain.RelData, Type: domain.MediaJSON, Title: "Collections"},
			{Href: base + "/conformance", Rel: domain.RelConformance, Type: domain.MediaJSON, Title: "Conformance classes"},
		},
	}
}

// Conformance returns the implemented conformance classes.
func (s *Service) Conformance() Conformance {
	return Conformance{ConformsTo: conformanceClasses}
}

// Collections lists every published collection.
func (s *Service) Collections(ctx context.Context, base string) (Collections, error) {
	summaries, err := s.repo.List(ctx)
	if err != nil {
		return Collections{}, err
	}

	docs := make([]CollectionDoc, 0, len(summaries))
	for _, sum := range summaries {
		docs = append(docs, CollectionDoc{
			ID:       sum.ID,
			Title:    sum.ID,
			ItemType: "feature",
			CRS:      []string{crsURI(sum.SRID)},
			Links:    collectionLinks(base, sum.ID),
		})
	}
	return Collections{
		Collections: docs,
		Links: []domain.Link{
			{Href: base + "/collections", Rel: domain.RelSelf, Type: domain.MediaJSON},
		},
	}, nil
}

// Collection describes one collection, including its live spatial extent.
func (s *Service) Collection(ctx context.Context, base, id string) (CollectionDoc, error) {
	detail, err := s.repo.Detail(ctx, id)
	if err != nil {
		return CollectionDoc{}, err
	}

	doc := CollectionDoc{
		ID:              id,
		Title:           id,
		Description:     fmt.Sprintf("%d features", detail.FeatureCount),
		ItemType:        "feature",
		CRS:             []string{crsURI(detail.Collection.SRID)},
		StorageCRS:      crsURI(detail.Collection.SRID),
		DatetimeColumns: detail.Collection.TimestampColumns,
		Links:           collectionLinks(base, id),
	}
	if detail.Extent != nil {
		e := detail.Extent
		doc.Extent = &Extent{Spatial: &SpatialExtent{
			BBox: [][]float64{{e.MinX, e.MinY, e.MaxX, e.MaxY}},
			CRS:  crsURI(detail.Collection.SRID),
		}}
	}
	return doc, nil
}

// Items executes the composed query and wraps the page in a GeoJSON
// feature collection with pagination links.
func (s *Service) Items(ctx context.Context, base, id string, spec domain.QuerySpec) (domain.FeatureCollection, error) {
	page, err := s.repo.Query(ctx, id, spec)
	if err != nil {
		return domain.FeatureCollection{}, err
	}

	itemsURL := base + "/collections/" + id + "/items"
	for i := range page.Items {
		page.Items[i].Links = featureLinks(base, id, fmt.Sprint(page.Items[i].ID))
	}

	return domain.FeatureCollection{
		Type:           "FeatureCollection",
		Features:       page.Items,
		NumberMatched:  page.TotalMatched,
		NumberReturned: page.Returned,
		TimeStamp:      time.Now().UTC().Format(time.RFC3339),
		Links: domain.PageLinks(itemsURL, domain.EncodeQuery(spec),
			spec.Limit, spec.Offset, page.Returned, page.TotalMatched),
	}, nil
}

// Feature fetches one feature by id.
func (s *Service) Feature(ctx context.Context, base, id, featureID string, precision int) (domain.Feature, error) {
	f, err := s.repo.Get(ctx, id, featureID, precision)
	if err != nil {
		return domain.Feature{}, err
	}
	f.Links = featureLinks(base, id, featureID)
	return f, nil
}

func collectionLinks(base, id string) []domain.Link {
	colURL := base + "/collections/" + id
	return []domain.Link{
		{Href: colURL, Rel: domain.RelSelf, Type: domain.MediaJSON},
		{Href: colURL + "/items", Rel: domain.RelItems, Type: domain.MediaGeoJSON, Title: "Items"},
	}
}

func featureLinks(base, id, featureID string) []domain.Link {
	colURL := base + "/collections/" + id
	return []domain.Link{
		{Href: colURL + "/items/" + featureID, Rel: domain.RelSelf, Type: domain.MediaGeoJSON},
		{Href: colURL, Rel: domain.RelCollection, Type: domain.MediaJSON},
	}
}

// crsURI maps an SRID to its CRS identifier. WGS84 lon/lat uses the
// canonical CRS84 URI.
func crsURI(srid int) string {
	if srid == 4326 || srid == 0 {
		return crs84
	}
	return fmt.Sprintf("http://www.opengis.net/def/crs/EPSG/0/%d", srid)
}
