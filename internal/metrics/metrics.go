// Package metrics defines the Prometheus collectors for tour provisioning, the
// view cache and the HTTP surface. Collectors register with the default registry on init and
// are exposed by promhttp at GET /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provisioning outcomes used as the result label of provision_runs_total.
const (
	ProvisionSucceeded = "success"
	ProvisionReplayed  = "replayed"
	ProvisionInvalid   = "invalid"
	ProvisionConflict  = "conflict"
	ProvisionFailed    = "failed"
)

var (
	provisionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew",
		Subsystem: "provision",
		Name:      "runs_total",
		Help:      "Tour provisioning runs broken down by outcome.",
	}, []string{"result"})

	provisionCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew",
		Subsystem: "provision",
		Name:      "compensations_total",
		Help:      "Rollbacks of partially written tours broken down by whether they completed.",
	}, []string{"result"})

	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew",
		Subsystem: "view_cache",
		Name:      "requests_total",
		Help:      "View cache lookups broken down by key and hit/miss.",
	}, []string{"key", "result"})

	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew",
		Subsystem: "view_cache",
		Name:      "invalidate_total",
		Help:      "View cache invalidations broken down by key.",
	}, []string{"key"})

	// HTTPRequests counts served requests by method, chi route pattern and
	// status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests broken down by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crew",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordProvision counts one provisioning run with the given outcome.
func RecordProvision(result string) {
	provisionRuns.WithLabelValues(result).Inc()
}

// RecordCompensation counts one rollback attempt.
func RecordCompensation(complete bool) {
	result := "complete"
	if !complete {
		result = "incomplete"
	}
	provisionCompensations.WithLabelValues(result).Inc()
}

// RecordCacheRequest counts one view cache lookup.
func RecordCacheRequest(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(key, result).Inc()
}

// RecordCacheInvalidate counts one invalidated view cache key.
func RecordCacheInvalidate(key string) {
	cacheInvalidations.WithLabelValues(key).Inc()
}

// RecordHTTPRequest counts one served request and observes its latency.
func RecordHTTPRequest(method, route, status string, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
