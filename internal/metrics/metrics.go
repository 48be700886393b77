// Package metrics exposes Prometheus instrumentation for the API server
// and the dashboard agent.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback reasons
const (
	ReasonNotConfigured = "not_configured"
	ReasonStoreError    = "store_error"
	ReasonEmpty         = "empty"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wildwatch_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Store
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wildwatch_store_query_duration_seconds",
			Help:    "Duration of store calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_store_errors_total",
			Help: "Total number of failed store calls",
		},
		[]string{"operation", "entity"},
	)

	// FallbackServed counts reads answered from the in-memory dataset
	FallbackServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_fallback_served_total",
			Help: "Reads answered from fallback data, by resource and reason",
		},
		[]string{"resource", "reason"},
	)

	// Media
	PhotoUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_photo_uploads_total",
			Help: "Photo uploads by outcome",
		},
		[]string{"outcome"},
	)

	PhotoUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wildwatch_photo_upload_bytes_total",
			Help: "Bytes of photo data stored",
		},
	)

	// Dispatch
	ResponsesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_responses_dispatched_total",
			Help: "Alert responses dispatched, by whether they were published",
		},
		[]string{"published"},
	)

	// Ingest
	StatusReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_status_reports_total",
			Help: "Device status reports received over MQTT, by outcome",
		},
		[]string{"outcome"},
	)

	// Cache
	AnalyticsCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wildwatch_analytics_cache_hits_total",
			Help: "Analytics responses served from cache",
		},
	)

	AnalyticsCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wildwatch_analytics_cache_misses_total",
			Help: "Analytics responses computed after a cache miss",
		},
	)

	// Dashboard
	MarkerOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_dashboard_marker_ops_total",
			Help: "Marker operations applied to the map surface",
		},
		[]string{"kind", "op"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wildwatch_dashboard_websocket_clients",
			Help: "Connected map surface clients",
		},
	)

	ClientFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wildwatch_dashboard_fetch_errors_total",
			Help: "Failed API fetches from the dashboard agent, by endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)
)

// RecordStoreCall records the duration and outcome of a store call
func RecordStoreCall(operation, entity string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation, entity).Inc()
	}
}

// RecordFallback records a read served from fallback data
func RecordFallback(resource, reason string) {
	FallbackServed.WithLabelValues(resource, reason).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpload records a photo upload outcome
func RecordUpload(outcome string, size int64) {
	PhotoUploads.WithLabelValues(outcome).Inc()
	if size > 0 {
		PhotoUploadBytes.Add(float64(size))
	}
}

// RecordDispatch records an alert response
func RecordDispatch(published bool) {
	ResponsesDispatched.WithLabelValues(strconv.FormatBool(published)).Inc()
}

// RecordStatusReport records an ingested device status
func RecordStatusReport(outcome string) {
	StatusReports.WithLabelValues(outcome).Inc()
}

// RecordMarkerOp records a map surface operation
func RecordMarkerOp(kind, op string) {
	MarkerOps.WithLabelValues(kind, op).Inc()
}
