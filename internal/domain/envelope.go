package domain

import "encoding/json"

// Feature is one GeoJSON feature decoded from a typed-table row. Geometry is
// serialized in-database and carried through verbatim.
type Feature struct {
	Type       string          `json:"type"`
	ID         any             `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
	Links      []Link          `json:"links,omitempty"`
}

// FeatureCollection is the paginated envelope of the features API.
type FeatureCollection struct {
	Type           string    `json:"type"`
	Features       []Feature `json:"features"`
	NumberMatched  int       `json:"numberMatched"`
	NumberReturned int       `json:"numberReturned"`
	TimeStamp      string    `json:"timeStamp"`
	Links          []Link    `json:"links"`
}

// ItemCollection is the paginated envelope of the catalog API. Items are
// merged JSON documents produced in-database.
type ItemCollection struct {
	Type           string            `json:"type"`
	Features       []json.RawMessage `json:"features"`
	NumberMatched  int               `json:"numberMatched"`
	NumberReturned int               `json:"numberReturned"`
	TimeStamp      string            `json:"timeStamp"`
	Links          []Link            `json:"links"`
}
