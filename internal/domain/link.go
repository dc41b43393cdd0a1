package domain

import (
	"net/url"
	"strconv"
)

// Link relation and media types used across both APIs.
const (
	RelSelf        = "self"
	RelNext        = "next"
	RelPrev        = "prev"
	RelRoot        = "root"
	RelParent      = "parent"
	RelItems       = "items"
	RelCollection  = "collection"
	RelData        = "data"
	RelConformance = "conformance"
	RelServiceDesc = "service-desc"

	MediaJSON    = "application/json"
	MediaGeoJSON = "application/geo+json"
)

// Link is one hypermedia link in a response envelope.
type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// PageLinks builds self/next/prev links for a paginated response. The next
// link exists iff offset+returned < totalMatched; the prev link exists iff
// offset > 0 and points at max(0, offset-limit). All other query parameters
// are carried over unchanged.
func PageLinks(itemsURL string, params url.Values, limit, offset, returned, totalMatched int) []Link {
	links := []Link{{
		Href:  itemsURL + "?" + params.Encode(),
		Rel:   RelSelf,
		Type:  MediaGeoJSON,
		Title: "This page",
	}}

	if offset+returned < totalMatched {
		next := cloneValues(params)
		next.Set("offset", strconv.Itoa(offset+limit))
		links = append(links, Link{
			Href:  itemsURL + "?" + next.Encode(),
			Rel:   RelNext,
			Type:  MediaGeoJSON,
			Title: "Next page",
		})
	}

	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		prev := cloneValues(params)
		prev.Set("offset", strconv.Itoa(prevOffset))
		links = append(links, Link{
			Href:  itemsURL + "?" + prev.Encode(),
			Rel:   RelPrev,
			Type:  MediaGeoJSON,
			Title: "Previous page",
		})
	}

	return links
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
