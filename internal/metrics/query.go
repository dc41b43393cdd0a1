package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Database query metrics.
var (
	queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rmhogcapi",
			Name:      "query_duration_seconds",
			Help:      "Composed query duration in seconds, count and page combined",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"api", "kind"},
	)

	queryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rmhogcapi",
			Name:      "queries_total",
			Help:      "Total number of composed queries executed",
		},
		[]string{"api", "kind"},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers Prometheus query metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(queryDuration)
	prometheus.MustRegister(queryTotal)
	queryMetricsRegistered = true
}

// ObserveQuery records one composed query execution. api is the API surface
// ("features" or "stac"), kind the operation ("items", "feature", ...).
func ObserveQuery(api, kind string, elapsed time.Duration) {
	queryDuration.WithLabelValues(api, kind).Observe(elapsed.Seconds())
	queryTotal.WithLabelValues(api, kind).Inc()
}
