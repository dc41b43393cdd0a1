package features

import (
	"context"
	"strings"
	"testing"

	"github.com/rob634/rmhogcapi/internal/domain"
)

const testBase = "http://api.test/features"

// mockRepo implements Repository with function fields.
type mockRepo struct {
	listFn   func(ctx context.Context) ([]domain.CollectionSummary, error)
	detailFn func(ctx context.Context, id string) (domain.CollectionDetail, error)
	queryFn  func(ctx context.Context, id string, spec domain.QuerySpec) (domain.PageResult[domain.Feature], error)
	getFn    func(ctx context.Context, id, featureID string, precision int) (domain.Feature, error)
}

func (m *mockRepo) List(ctx context.Context) ([]domain.CollectionSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockRepo) Detail(ctx context.Context, id string) (domain.CollectionDetail, error) {
	if m.detailFn != nil {
		return m.detailFn(ctx, id)
	}
	return domain.CollectionDetail{}, nil
}

func (m *mockRepo) Query(ctx context.Context, id string, spec domain.QuerySpec) (domain.PageResult[domain.Feature], error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, id, spec)
	}
	return domain.PageResult[domain.Feature]{}, nil
}

func (m *mockRepo) Get(ctx context.Context, id, featureID string, precision int) (domain.Feature, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, featureID, precision)
	}
	return domain.Feature{}, nil
}

func TestLanding(t *testing.T) {
	svc := New(&mockRepo{}, "Features", "desc")
	landing := svc.Landing(testBase)

	if landing.Title != "Features" {
		t.Errorf("unexpected title: %s", landing.Title)
	}
	rels := map[string]bool{}
	for _, l := range landing.Links {
		rels[l.Rel] = true
	}
	for _, rel := range []string{domain.RelSelf, domain.RelData, domain.RelConformance} {
		if !rels[rel] {
			t.Errorf("missing %s link", rel)
		}
	}
}

func TestCollections(t *testing.T) {
	repo := &mockRepo{
		listFn: func(context.Context) ([]domain.CollectionSummary, error) {
			return []domain.CollectionSummary{
				{ID: "roads", GeometryColumn: "geom", GeometryType: "LINESTRING", SRID: 4326},
			}, nil
		},
	}
	svc := New(repo, "t", "t")

	cols, err := svc.Collections(context.Background(), testBase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols.Collections) != 1 {
		t.Fatalf("unexpected count: %d", len(cols.Collections))
	}
	doc := cols.Collections[0]
	if doc.ItemType != "feature" {
		t.Errorf("unexpected itemType: %s", doc.ItemType)
	}
	if len(doc.CRS) != 1 || !strings.Contains(doc.CRS[0], "CRS84") {
		t.Errorf("4326 must map to CRS84: %v", doc.CRS)
	}

	var itemsHref string
	for _, l := range doc.Links {
		if l.Rel == domain.RelItems {
			itemsHref = l.Href
		}
	}
	if itemsHref != testBase+"/collections/roads/items" {
		t.Errorf("unexpected items link: %s", itemsHref)
	}
}

func TestCollection_Extent(t *testing.T) {
	repo := &mockRepo{
		detailFn: func(_ context.Context, id string) (domain.CollectionDetail, error) {
			return domain.CollectionDetail{
				Collection: domain.Collection{
					ID:               id,
					SRID:             3857,
					TimestampColumns: []string{"created_at", "updated_at"},
				},
				Extent:       &domain.BBox{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5},
				FeatureCount: 42,
			}, nil
		},
	}
	svc := New(repo, "t", "t")

	doc, err := svc.Collection(context.Background(), testBase, "roads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Extent == nil || doc.Extent.Spatial == nil {
		t.Fatal("missing extent")
	}
	bbox := doc.Extent.Spatial.BBox[0]
	if bbox[0] != -10 || bbox[3] != 5 {
		t.Errorf("unexpected bbox: %v", bbox)
	}
	if !strings.Contains(doc.CRS[0], "EPSG/0/3857") {
		t.Errorf("non-4326 SRID must map to an EPSG URI: %v", doc.CRS)
	}
	if doc.StorageCRS != doc.CRS[0] {
		t.Errorf("storage CRS %q does not match %q", doc.StorageCRS, doc.CRS[0])
	}
	if len(doc.DatetimeColumns) != 2 || doc.DatetimeColumns[0] != "created_at" {
		t.Errorf("unexpected datetime columns: %v", doc.DatetimeColumns)
	}
}

func TestItems_Envelope(t *testing.T) {
	repo := &mockRepo{
		queryFn: func(_ context.Context, _ string, _ domain.QuerySpec) (domain.PageResult[domain.Feature], error) {
			items := []domain.Feature{
				{Type: "Feature", ID: 1, Properties: map[string]any{}},
				{Type: "Feature", ID: 2, Properties: map[string]any{}},
			}
			return domain.NewPageResult(items, 12), nil
		},
	}
	svc := New(repo, "t", "t")

	fc, err := svc.Items(context.Background(), testBase, "roads",
		domain.QuerySpec{Limit: 2, Offset: 2, Precision: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.NumberMatched != 12 || fc.NumberReturned != 2 {
		t.Errorf("unexpected counts: %d/%d", fc.NumberMatched, fc.NumberReturned)
	}
	if fc.TimeStamp == "" {
		t.Error("missing timestamp")
	}

	rels := map[string]string{}
	for _, l := range fc.Links {
		rels[l.Rel] = l.Href
	}
	if rels[domain.RelSelf] == "" || rels[domain.RelNext] == "" || rels[domain.RelPrev] == "" {
		t.Errorf("middle page must carry self, next and prev: %v", rels)
	}

	var selfHref string
	for _, l := range fc.Features[0].Links {
		if l.Rel == domain.RelSelf {
			selfHref = l.Href
		}
	}
	if selfHref != testBase+"/collections/roads/items/1" {
		t.Errorf("unexpected feature self link: %s", selfHref)
	}
}

func TestFeature_Links(t *testing.T) {
	repo := &mockRepo{
		getFn: func(_ context.Context, _, featureID string, _ int) (domain.Feature, error) {
			return domain.Feature{Type: "Feature", ID: featureID}, nil
		},
	}
	svc := New(repo, "t", "t")

	f, err := svc.Feature(context.Background(), testBase, "roads", "7", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rels := map[string]bool{}
	for _, l := range f.Links {
		rels[l.Rel] = true
	}
	if !rels[domain.RelSelf] || !rels[domain.RelCollection] {
		t.Errorf("single feature must link to itself and its collection: %v", f.Links)
	}
}

func TestCRSURI(t *testing.T) {
	if got := crsURI(4326); got != crs84 {
		t.Errorf("unexpected uri: %s", got)
	}
	if got := crsURI(3857); got != "http://www.opengis.net/def/crs/EPSG/0/3857" {
		t.Errorf("unexpected uri: %s", got)
	}
}
