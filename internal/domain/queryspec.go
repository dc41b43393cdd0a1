package domain

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BBox is a longitude/latitude envelope in EPSG:4326.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

func (b BBox) String() string {
	parts := []string{
		strconv.FormatFloat(b.MinX, 'f', -1, 64),
		strconv.FormatFloat(b.MinY, 'f', -1, 64),
		strconv.FormatFloat(b.MaxX, 'f', -1, 64),
		strconv.FormatFloat(b.MaxY, 'f', -1, 64),
	}
	return strings.Join(parts, ",")
}

// Validate rejects inverted envelopes. Antimeridian-crossing boxes
// (minx > maxx) are rejected rather than wrapped.
func (b BBox) Validate() error {
	if b.MinX > b.MaxX {
		return InvalidParameter("bbox minx %g greater than maxx %g", b.MinX, b.MaxX)
	}
	if b.MinY > b.MaxY {
		return InvalidParameter("bbox miny %g greater than maxy %g", b.MinY, b.MaxY)
	}
	return nil
}

// Interval is a temporal filter: a closed or half-open interval, or a single
// instant. A nil bound is open.
type Interval struct {
	Start   *time.Time
	End     *time.Time
	Instant bool

	// Raw preserves the caller's original datetime text for link rebuilding.
	Raw string
}

// Filter is one exact-match predicate on a named column or document property.
type Filter struct {
	Key   string
	Value string
}

// SortField is one entry of a compound sort specification.
type SortField struct {
	Column string
	Desc   bool
}

// QuerySpec is the normalized, validated filter and pagination input for one
// request. Limit and Offset are already bounds-checked by the caller.
type QuerySpec struct {
	BBox           *BBox
	Datetime       *Interval
	DatetimeColumn string // caller override for the temporal column
	Filters        []Filter
	Sort           []SortField

	Limit  int
	Offset int

	// Precision is the number of decimal digits of serialized coordinates.
	Precision int
	// Simplify is the simplification tolerance; 0 disables.
	Simplify float64
}

// SortString renders the sort spec back into OGC sortby grammar.
func (s QuerySpec) SortString() string {
	if len(s.Sort) == 0 {
		return ""
	}
	parts := make([]string, len(s.Sort))
	for i, f := range s.Sort {
		if f.Desc {
			parts[i] = "-" + f.Column
		} else {
			parts[i] = "+" + f.Column
		}
	}
	return strings.Join(parts, ",")
}

// EncodeQuery renders a QuerySpec into canonical query parameters. The same
// spec always yields the same encoding, so self links are idempotent.
func EncodeQuery(s QuerySpec) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(s.Limit))
	v.Set("offset", strconv.Itoa(s.Offset))
	if s.BBox != nil {
		v.Set("bbox", s.BBox.String())
	}
	if s.Datetime != nil {
		v.Set("datetime", s.Datetime.Raw)
	}
	if s.DatetimeColumn != "" {
		v.Set("datetime_property", s.DatetimeColumn)
	}
	if sortby := s.SortString(); sortby != "" {
		v.Set("sortby", sortby)
	}
	v.Set("precision", strconv.Itoa(s.Precision))
	if s.Simplify > 0 {
		v.Set("simplify", strconv.FormatFloat(s.Simplify, 'f', -1, 64))
	}
	for _, f := range s.Filters {
		v.Set(f.Key, f.Value)
	}
	return v
}
