package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/api/test", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/test", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	durationCount := testutil.CollectAndCount(httpRequestDuration)
	if durationCount == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestObserveQuery(t *testing.T) {
	RegisterQueryMetrics()

	ObserveQuery("features", "items", 50*time.Millisecond)

	total := testutil.ToFloat64(queryTotal.WithLabelValues("features", "items"))
	if total < 1 {
		t.Errorf("expected queries_total >= 1, got %f", total)
	}
	if testutil.CollectAndCount(queryDuration) == 0 {
		t.Error("expected query_duration_seconds to have observations")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := normalizePath(""); got != "unknown" {
		t.Errorf("empty pattern must normalize to unknown, got %q", got)
	}
	if got := normalizePath("/a/{id}"); got != "/a/{id}" {
		t.Errorf("route patterns must pass through, got %q", got)
	}
}
