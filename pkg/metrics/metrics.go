// Package metrics provides Prometheus metrics for the SAV backend
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconcile outcome labels
const (
	OutcomeSuccess        = "success"
	OutcomeWriteFailed    = "write_failed"
	OutcomePartialFailure = "partial_failure"
)

var (
	// HTTP server metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sav_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sav_http_request_duration_seconds",
			Help:    "Duration of handled HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Upstream CRM API metrics
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sav_upstream_calls_total",
			Help: "Total number of calls made to the upstream CRM API",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sav_upstream_call_duration_seconds",
			Help:    "Duration of upstream CRM API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Dual-write reconciliation metrics. partial_failure counts mutations
	// where the dossiers resource committed but the contacts resource did not.
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sav_reconcile_total",
			Help: "Total number of dual-write reconciliations by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordHTTPRequest records a handled HTTP request
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordUpstreamCall records a call to the upstream CRM API
func RecordUpstreamCall(endpoint, status string, duration time.Duration) {
	UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	UpstreamCallDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordReconcile records the outcome of a reconciliation
func RecordReconcile(outcome string) {
	ReconcileTotal.WithLabelValues(outcome).Inc()
}
