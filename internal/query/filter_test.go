package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rob634/rmhogcapi/internal/db"
	"github.com/rob634/rmhogcapi/internal/domain"
)

// render composes fragments into an inspectable query.
func render(t *testing.T, frags []db.Fragment) db.Query {
	t.Helper()
	var b db.Builder
	b.Where(frags)
	q, err := b.Build()
	if err != nil {
		t.Fatalf("render fragments: %v", err)
	}
	return q
}

// --- BBox ---

func TestBuildFilters_BBox(t *testing.T) {
	col := typedCollection()
	spec := domain.QuerySpec{BBox: &domain.BBox{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}}

	frags, err := BuildFilters(col, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := render(t, frags)
	want := ` WHERE ST_Intersects("geom", ST_MakeEnvelope($1, $2, $3, $4, 4326))`
	if q.SQL != want {
		t.Errorf("got %q, want %q", q.SQL, want)
	}
	if len(q.Args) != 4 || q.Args[0] != -10.0 || q.Args[3] != 5.0 {
		t.Errorf("unexpected args: %v", q.Args)
	}
}

func TestBuildFilters_BBoxWithoutGeometry(t *testing.T) {
	col := typedCollection()
	col.GeometryColumn = ""
	spec := domain.QuerySpec{BBox: &domain.BBox{MaxX: 1, MaxY: 1}}

	_, err := BuildFilters(col, spec)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("bbox without geometry column must be rejected, got %v", err)
	}
}

func TestBuildFilters_InvertedBBox(t *testing.T) {
	spec := domain.QuerySpec{BBox: &domain.BBox{MinX: 10, MaxX: -10, MinY: 0, MaxY: 1}}
	_, err := BuildFilters(typedCollection(), spec)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("inverted bbox must be rejected, got %v", err)
	}
}

// --- Temporal ---

func TestBuildFilters_InstantIsWholeDay(t *testing.T) {
	start := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	spec := domain.QuerySpec{Datetime: &domain.Interval{Start: &start, Instant: true}}

	frags, err := BuildFilters(typedCollection(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := render(t, frags)
	want := ` WHERE "created_at" >= $1 AND "created_at" < $2`
	if q.SQL != want {
		t.Errorf("got %q, want %q", q.SQL, want)
	}
	end, ok := q.Args[1].(time.Time)
	if !ok || !end.Equal(start.Add(24*time.Hour)) {
		t.Errorf("instant upper bound must be start+24h, got %v", q.Args[1])
	}
}

func TestBuildFilters_ClosedInterval(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	spec := domain.QuerySpec{Datetime: &domain.Interval{Start: &start, End: &end}}

	q := render(t, mustFilters(t, typedCollection(), spec))
	want := ` WHERE "created_at" >= $1 AND "created_at" <= $2`
	if q.SQL != want {
		t.Errorf("got %q, want %q", q.SQL, want)
	}
}

func TestBuildFilters_OpenEndedIntervals(t *testing.T) {
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	q := render(t, mustFilters(t, typedCollection(),
		domain.QuerySpec{Datetime: &domain.Interval{Start: &ts}}))
	if q.SQL != ` WHERE "created_at" >= $1` {
		t.Errorf("open-end interval: got %q", q.SQL)
	}

	q = render(t, mustFilters(t, typedCollection(),
		domain.QuerySpec{Datetime: &domain.Interval{End: &ts}}))
	if q.SQL != ` WHERE "created_at" <= $1` {
		t.Errorf("open-start interval: got %q", q.SQL)
	}
}

func TestBuildFilters_FullyOpenIntervalMatchesAll(t *testing.T) {
	frags := mustFilters(t, typedCollection(),
		domain.QuerySpec{Datetime: &domain.Interval{Raw: "../.."}})
	if len(frags) != 0 {
		t.Errorf("fully open interval must emit no predicate, got %d fragments", len(frags))
	}
}

func TestBuildFilters_DatetimePropertyOverride(t *testing.T) {
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	spec := domain.QuerySpec{
		Datetime:       &domain.Interval{Start: &ts},
		DatetimeColumn: "updated_at",
	}

	q := render(t, mustFilters(t, typedCollection(), spec))
	if !strings.Contains(q.SQL, `"updated_at"`) {
		t.Errorf("override column not used: %s", q.SQL)
	}
}

func TestBuildFilters_DatetimePropertyUnknown(t *testing.T) {
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	spec := domain.QuerySpec{
		Datetime:       &domain.Interval{Start: &ts},
		DatetimeColumn: "nope",
	}

	_, err := BuildFilters(typedCollection(), spec)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("unknown datetime_property must be rejected, got %v", err)
	}
}

func TestBuildFilters_NoTimestampColumn(t *testing.T) {
	col := typedCollection()
	col.TimestampColumns = nil
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := BuildFilters(col, domain.QuerySpec{Datetime: &domain.Interval{Start: &ts}})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("datetime without timestamp column must be rejected, got %v", err)
	}
}

// --- Equality ---

func TestBuildFilters_ColumnEquality(t *testing.T) {
	spec := domain.QuerySpec{Filters: []domain.Filter{{Key: "status", Value: "open"}}}
	q := render(t, mustFilters(t, typedCollection(), spec))
	if q.SQL != ` WHERE "status" = $1` {
		t.Errorf("got %q", q.SQL)
	}
	if q.Args[0] != "open" {
		t.Errorf("unexpected arg: %v", q.Args[0])
	}
}

func TestBuildFilters_DocumentPropertyBindsKeyAsValue(t *testing.T) {
	spec := domain.QuerySpec{Filters: []domain.Filter{{Key: "cloud_cover", Value: "10"}}}
	q := render(t, mustFilters(t, documentCollection(), spec))
	want := ` WHERE content->'properties'->>$1 = $2`
	if q.SQL != want {
		t.Errorf("got %q, want %q", q.SQL, want)
	}
	if q.Args[0] != "cloud_cover" || q.Args[1] != "10" {
		t.Errorf("property key and value must both bind as parameters: %v", q.Args)
	}
}

func TestBuildFilters_UnknownKeyRejected(t *testing.T) {
	spec := domain.QuerySpec{Filters: []domain.Filter{{Key: "no_such", Value: "x"}}}
	_, err := BuildFilters(typedCollection(), spec)
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("unknown filter key must be rejected, got %v", err)
	}
}

// --- OrderBy ---

func TestOrderBy_Explicit(t *testing.T) {
	spec := domain.QuerySpec{Sort: []domain.SortField{
		{Column: "name"}, {Column: "created_at", Desc: true},
	}}
	order, err := OrderBy(typedCollection(), spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != ` ORDER BY "name" ASC, "created_at" DESC` {
		t.Errorf("got %q", order)
	}
}

func TestOrderBy_UnknownColumn(t *testing.T) {
	spec := domain.QuerySpec{Sort: []domain.SortField{{Column: "bogus"}}}
	if _, err := OrderBy(typedCollection(), spec); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("unknown sort column must be rejected, got %v", err)
	}
}

func TestOrderBy_DefaultTypedUsesPrimaryKey(t *testing.T) {
	order, err := OrderBy(typedCollection(), domain.QuerySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != ` ORDER BY "id" ASC` {
		t.Errorf("got %q", order)
	}
}

func TestOrderBy_DefaultTypedWithoutKeyFallsBackToFirstColumn(t *testing.T) {
	col := typedCollection()
	col.PrimaryKey = ""
	order, err := OrderBy(col, domain.QuerySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != ` ORDER BY "id" ASC` { // first column happens to be id
		t.Errorf("got %q", order)
	}
}

func TestOrderBy_DefaultDocumentNewestFirst(t *testing.T) {
	order, err := OrderBy(documentCollection(), domain.QuerySpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != ` ORDER BY "datetime" DESC, "id" ASC` {
		t.Errorf("got %q", order)
	}
}

func mustFilters(t *testing.T, col domain.Collection, spec domain.QuerySpec) []db.Fragment {
	t.Helper()
	frags, err := BuildFilters(col, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return frags
}
