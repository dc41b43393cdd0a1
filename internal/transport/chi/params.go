package chi

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rob634/rmhogcapi/internal/domain"
)

// Limits carries the deployment's paging and precision bounds.
type Limits struct {
	DefaultLimit     int
	MaxLimit         int
	DefaultPrecision int
}

// reservedKeys are query parameters with dedicated grammar. Every other key
// is treated as an equality filter on a column or document property.
var reservedKeys = map[string]struct{}{
	"limit":             {},
	"offset":            {},
	"bbox":              {},
	"datetime":          {},
	"datetime_property": {},
	"sortby":            {},
	"precision":         {},
	"simplify":          {},
	"crs":               {},
}

const (
	crs84URI  = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"
	epsg4326  = "EPSG:4326"
	maxDigits = 15
)

// parseQuery validates the full parameter set and builds the query
// description. Validation is all or nothing: the first offending parameter
// fails the request.
func parseQuery(values url.Values, limits Limits) (domain.QuerySpec, error) {
	var zero domain.QuerySpec

	spec := domain.QuerySpec{
		Limit:     limits.DefaultLimit,
		Precision: limits.DefaultPrecision,
	}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > limits.MaxLimit {
			return zero, domain.InvalidParameter("limit must be an integer between 1 and %d, got %q", limits.MaxLimit, raw)
		}
		spec.Limit = n
	}

	if raw := values.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return zero, domain.InvalidParameter("offset must be a non-negative integer, got %q", raw)
		}
		spec.Offset = n
	}

	if raw := values.Get("bbox"); raw != "" {
		bbox, err := parseBBox(raw)
		if err != nil {
			return zero, err
		}
		spec.BBox = bbox
	}

	if raw := values.Get("datetime"); raw != "" {
		interval, err := parseDatetime(raw)
		if err != nil {
			return zero, err
		}
		spec.Datetime = interval
	}

	spec.DatetimeColumn = values.Get("datetime_property")

	if raw := values.Get("sortby"); raw != "" {
		sort, err := parseSortBy(raw)
		if err != nil {
			return zero, err
		}
		spec.Sort = sort
	}

	if raw := values.Get("precision"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxDigits {
			return zero, domain.InvalidParameter("precision must be an integer between 0 and %d, got %q", maxDigits, raw)
		}
		spec.Precision = n
	}

	if raw := values.Get("simplify"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return zero, domain.InvalidParameter("simplify must be a non-negative number, got %q", raw)
		}
		spec.Simplify = f
	}

	if raw := values.Get("crs"); raw != "" {
		if raw != crs84URI && raw != epsg4326 {
			return zero, domain.InvalidParameter("unsupported crs %q", raw)
		}
	}

	// url.Values is a map; iterate keys in sorted order so the composed
	// filter list is the same for identical requests.
	keys := make([]string, 0, len(values))
	for key := range values {
		if _, reserved := reservedKeys[key]; !reserved {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		vals := values[key]
		if len(vals) == 0 || vals[0] == "" {
			return zero, domain.InvalidParameter("filter parameter %q has no value", key)
		}
		spec.Filters = append(spec.Filters, domain.Filter{Key: key, Value: vals[0]})
	}

	return spec, nil
}

func parseBBox(raw string) (*domain.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, domain.InvalidParameter("bbox must have exactly 4 comma-separated numbers, got %q", raw)
	}
	nums := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, domain.InvalidParameter("bbox coordinate %q is not a number", p)
		}
		nums[i] = f
	}
	bbox := &domain.BBox{MinX: nums[0], MinY: nums[1], MaxX: nums[2], MaxY: nums[3]}
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	return bbox, nil
}

// parseDatetime accepts an instant or an interval. Interval bounds separate
// on "/" and either side may be open (".." or empty). Bounds parse as
// RFC 3339 timestamps or bare dates.
func parseDatetime(raw string) (*domain.Interval, error) {
	interval := &domain.Interval{Raw: raw}

	if !strings.Contains(raw, "/") {
		t, err := parseTimeBound(raw)
		if err != nil {
			return nil, err
		}
		interval.Start = t
		interval.Instant = true
		return interval, nil
	}

	lo, hi, _ := strings.Cut(raw, "/")
	if isOpenBound(lo) && isOpenBound(hi) {
		return nil, domain.InvalidParameter("datetime interval %q has no bound", raw)
	}
	if !isOpenBound(lo) {
		t, err := parseTimeBound(lo)
		if err != nil {
			return nil, err
		}
		interval.Start = t
	}
	if !isOpenBound(hi) {
		t, err := parseTimeBound(hi)
		if err != nil {
			return nil, err
		}
		interval.End = t
	}
	if interval.Start != nil && interval.End != nil && interval.End.Before(*interval.Start) {
		return nil, domain.InvalidParameter("datetime interval %q ends before it starts", raw)
	}
	return interval, nil
}

func isOpenBound(s string) bool {
	return s == "" || s == ".."
}

func parseTimeBound(s string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.InvalidParameter("datetime bound %q is not an RFC 3339 timestamp or date", s)
}

// parseSortBy reads a comma-separated field list where a leading "-" means
// descending and an optional leading "+" means ascending.
func parseSortBy(raw string) ([]domain.SortField, error) {
	parts := strings.Split(raw, ",")
	out := make([]domain.SortField, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		field := domain.SortField{}
		switch {
		case strings.HasPrefix(p, "-"):
			field.Desc = true
			field.Column = p[1:]
		case strings.HasPrefix(p, "+"):
			field.Column = p[1:]
		default:
			field.Column = p
		}
		if field.Column == "" {
			return nil, domain.InvalidParameter("sortby entry %q has no field name", p)
		}
		out = append(out, field)
	}
	return out, nil
}
