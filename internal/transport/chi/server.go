// Package chi exposes the features and catalog APIs over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rob634/rmhogcapi/internal/domain"
	logpkg "github.com/rob634/rmhogcapi/internal/logger"
	"github.com/rob634/rmhogcapi/internal/metrics"
	cataloguc "github.com/rob634/rmhogcapi/internal/usecase/catalog"
	featuresuc "github.com/rob634/rmhogcapi/internal/usecase/features"
	healthuc "github.com/rob634/rmhogcapi/internal/usecase/health"
	"github.com/rob634/rmhogcapi/internal/version"
)

// errorCode identifies an error class to API clients.
type errorCode string

const (
	codeCollectionNotFound errorCode = "collection-not-found"
	codeNotFound           errorCode = "not-found"
	codeInvalidParameter   errorCode = "invalid-parameter"
	codeSchemaError        errorCode = "schema-error"
	codeQueryTimeout       errorCode = "query-timeout"
	codeInternalError      errorCode = "internal-error"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes HTTP requests to the features and catalog services.
type Server struct {
	features      *featuresuc.Service
	catalog       *cataloguc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	limits        Limits
	baseURL       string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. baseURL overrides request-derived
// link bases when non-empty.
func NewServer(
	features *featuresuc.Service,
	catalog *cataloguc.Service,
	health *healthuc.Service,
	limits Limits,
	baseURL string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		features: features,
		catalog:  catalog,
		health:   health,
		logger:   logger,
		limits:   limits,
		baseURL:  baseURL,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrCollectionNotFound, http.StatusNotFound, codeCollectionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidParameter, http.StatusBadRequest, codeInvalidParameter),
		sentinelHandler(domain.ErrSchema, http.StatusInternalServerError, codeSchemaError),
		sentinelHandler(domain.ErrQueryTimeout, http.StatusServiceUnavailable, codeQueryTimeout),
	}
	return s
}

// Router assembles the HTTP routes with their middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.contextLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/features", func(r chi.Router) {
		r.Get("/", s.handleFeaturesLanding)
		r.Get("/conformance", s.handleConformance)
		r.Get("/collections", s.handleFeaturesCollections)
		r.Get("/collections/{collectionID}", s.handleFeaturesCollection)
		r.Get("/collections/{collectionID}/items", s.handleFeaturesItems)
		r.Get("/collections/{collectionID}/items/{featureID}", s.handleFeature)
	})

	r.Route("/stac", func(r chi.Router) {
		r.Get("/", s.handleCatalogRoot)
		r.Get("/conformance", s.handleCatalogConformance)
		r.Get("/collections", s.handleCatalogCollections)
		r.Get("/collections/{collectionID}", s.handleCatalogCollection)
		r.Get("/collections/{collectionID}/items", s.handleCatalogItems)
		r.Get("/collections/{collectionID}/items/{itemID}", s.handleCatalogItem)
	})

	return r
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":  report.Status,
		"checks":  report.Checks,
		"version": version.Version,
	})
}

// --- Features API ---

func (s *Server) handleFeaturesLanding(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.features.Landing(s.base(r)+"/features"))
}

func (s *Server) handleConformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.features.Conformance())
}

func (s *Server) handleFeaturesCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.features.Collections(r.Context(), s.base(r)+"/features")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleFeaturesCollection(w http.ResponseWriter, r *http.Request) {
	doc, err := s.features.Collection(r.Context(), s.base(r)+"/features", chi.URLParam(r, "collectionID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleFeaturesItems(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r.URL.Query(), s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	fc, err := s.features.Items(r.Context(), s.base(r)+"/features", chi.URLParam(r, "collectionID"), spec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeGeoJSON(w, http.StatusOK, fc)
}

func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r.URL.Query(), s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	f, err := s.features.Feature(r.Context(), s.base(r)+"/features",
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "featureID"), spec.Precision)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeGeoJSON(w, http.StatusOK, f)
}

// --- Catalog API ---

func (s *Server) handleCatalogRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Root(s.base(r)+"/stac"))
}

func (s *Server) handleCatalogConformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Conformance())
}

func (s *Server) handleCatalogCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.catalog.Collections(r.Context(), s.base(r)+"/stac")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleCatalogCollection(w http.ResponseWriter, r *http.Request) {
	doc, err := s.catalog.Collection(r.Context(), chi.URLParam(r, "collectionID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleCatalogItems(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r.URL.Query(), s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ic, err := s.catalog.Items(r.Context(), s.base(r)+"/stac", chi.URLParam(r, "collectionID"), spec)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeGeoJSON(w, http.StatusOK, ic)
}

func (s *Server) handleCatalogItem(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r.URL.Query(), s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	item, err := s.catalog.Item(r.Context(),
		chi.URLParam(r, "collectionID"), chi.URLParam(r, "itemID"), spec.Precision)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeGeoJSON(w, http.StatusOK, item)
}

// contextLogger stores a request-scoped logger in the request context so
// downstream handlers log with the request id attached.
func (s *Server) contextLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.logger
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			log = log.With(zap.String("request_id", reqID))
		}
		next.ServeHTTP(w, r.WithContext(logpkg.ContextWithLogger(r.Context(), log)))
	})
}

// --- Error handling ---

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// safeDomainMessage returns an error message for the client without exposing
// internals. Parameter and schema errors carry their own detail; everything
// else collapses to its sentinel text.
func safeDomainMessage(err error) string {
	var perr *domain.ParameterError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	var serr *domain.SchemaError
	if errors.As(err, &serr) {
		return serr.Error()
	}
	sentinels := []error{
		domain.ErrCollectionNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidParameter,
		domain.ErrSchema,
		domain.ErrQueryTimeout,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// --- Helpers ---

// base derives the absolute URL prefix for links, preferring the configured
// override, then forwarding headers, then the request itself.
func (s *Server) base(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		if r.TLS != nil {
			scheme = "https"
		} else {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeGeoJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", domain.MediaGeoJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
