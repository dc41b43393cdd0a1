// Package catalog shapes document-table query results into the item
// catalog API's response documents.
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rob634/rmhogcapi/internal/domain"
)

// Conformance classes implemented by the catalog API.
var conformsTo = []string{
	"https://api.stacspec.org/v1.0.0/core",
	"https://api.stacspec.org/v1.0.0/collections",
	"https://api.stacspec.org/v1.0.0/ogcapi-features",
}

// Root is the catalog root document.
type Root struct {
	Type        string        `json:"type"`
	ID          string        `json:"id"`
	StacVersion string        `json:"stac_version"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description"`
	ConformsTo  []string      `json:"conformsTo"`
	Links       []domain.Link `json:"links"`
}

// Conformance lists the implemented conformance classes.
type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// Collections wraps the stored collection documents with navigation links.
type Collections struct {
	Collections []json.RawMessage `json:"collections"`
	Links       []domain.Link     `json:"links"`
}

// Service assembles catalog API documents from repository results.
type Service struct {
	repo        Repository
	id          string
	title       string
	description string
}

// New creates a catalog service.
func New(repo Repository, id, title, description string) *Service {
	return &Service{repo: repo, id: id, title: title, description: description}
}

// Root builds the catalog root document for the given base URL.
func (s *Service) Root(base string) Root {
	return Root{
		Type:        "Catalog",
		ID:          s.id,
		StacVersion: "1.0.0",
		Title:       s.title,
		Description: s.description,
		ConformsTo:  conformsTo,
		Links: []domain.Link{
			{Href: base, Rel: domain.RelSelf, Type: domain.MediaJSON},
			{Href: base, Rel: domain.RelRoot, Type: domain.MediaJSON},
			{Href: base + "/conformance", Rel: domain.RelConformance, Type: domain.MediaJSON, Title: "Conformance classes"},
			{Href: base + "/collections", Rel: domain.RelData, Type: domain.MediaJSON, Title: "Collections"},
		},
	}
}

// Conformance returns the implemented conformance classes.
func (s *Service) Conformance() Conformance {
	return Conformance{ConformsTo: conformsTo}
}

// Collections lists every stored collection document.
func (s *Service) Collections(ctx context.Context, base string) (Collections, error) {
	docs, err := s.repo.Collections(ctx)
	if err != nil {
		return Collections{}, err
	}
	return Collections{
		Collections: docs,
		Links: []domain.Link{
			{Href: base + "/collections", Rel: domain.RelSelf, Type: domain.MediaJSON},
			{Href: base, Rel: domain.RelRoot, Type: domain.MediaJSON},
		},
	}, nil
}

// Collection returns one stored collection document verbatim.
func (s *Service) Collection(ctx context.Context, id string) (json.RawMessage, error) {
	return s.repo.Collection(ctx, id)
}

// Items executes the composed query and wraps the page of item documents
// with pagination links.
func (s *Service) Items(ctx context.Context, base, id string, spec domain.QuerySpec) (domain.ItemCollection, error) {
	page, err := s.repo.Items(ctx, id, spec)
	if err != nil {
		return domain.ItemCollection{}, err
	}

	colURL := base + "/collections/" + id
	links := domain.PageLinks(colURL+"/items", domain.EncodeQuery(spec),
		spec.Limit, spec.Offset, page.Returned, page.TotalMatched)
	links = append(links,
		domain.Link{Href: colURL, Rel: domain.RelCollection, Type: domain.MediaJSON},
		domain.Link{Href: base, Rel: domain.RelRoot, Type: domain.MediaJSON},
	)

	return domain.ItemCollection{
		Type:           "FeatureCollection",
		Features:       page.Items,
		NumberMatched:  page.TotalMatched,
		NumberReturned: page.Returned,
		TimeStamp:      time.Now().UTC().Format(time.RFC3339),
		Links:          links,
	}, nil
}

// Item fetches one item document by id.
func (s *Service) Item(ctx context.Context, id, itemID string, precision int) (json.RawMessage, error) {
	return s.repo.Item(ctx, id, itemID, precision)
}
