// Package metrics provides Prometheus metrics for leafwise-server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesStarted tracks the total number of analysis pipelines started.
	AnalysesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leafwise_analyses_started_total",
			Help: "Total number of analysis pipelines started",
		},
	)

	// AnalysesCompleted tracks terminal pipeline states.
	AnalysesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafwise_analyses_completed_total",
			Help: "Total number of analysis pipelines reaching a terminal state",
		},
		[]string{"state"},
	)

	// PipelineDuration tracks end-to-end pipeline latency.
	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leafwise_pipeline_duration_seconds",
			Help:    "Duration of the full analysis pipeline",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
	)

	// ProviderCalls tracks outbound calls to external AI/data providers.
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafwise_provider_calls_total",
			Help: "Total number of external provider calls",
		},
		[]string{"provider", "outcome"},
	)

	// QuotaRejections tracks calls refused before any network cost.
	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafwise_quota_rejections_total",
			Help: "Total number of provider calls refused by the daily quota",
		},
		[]string{"bucket"},
	)

	// CacheLookups tracks catalog cache hits and misses.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafwise_cache_lookups_total",
			Help: "Total number of response cache lookups",
		},
		[]string{"result"},
	)

	// UsageDenied tracks requests turned away by the free-tier ledger.
	UsageDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leafwise_usage_denied_total",
			Help: "Total number of requests denied by the free-tier usage ledger",
		},
	)

	// HTTPRequests tracks HTTP requests by route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafwise_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// HTTPDuration tracks HTTP request latency by route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leafwise_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, endpoint, status string, duration float64) {
	HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	HTTPDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordProviderCall records the outcome of one provider call.
func RecordProviderCall(provider string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	ProviderCalls.WithLabelValues(provider, outcome).Inc()
}
