// Package metrics provides Prometheus metrics for the InsightPipe client toolkit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the Prometheus collectors for backend calls and the
// development server.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Backend client metrics
	clientRequests        *prometheus.CounterVec
	clientRequestDuration *prometheus.HistogramVec
	clientErrors          *prometheus.CounterVec

	// Development server metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	uiChanges           prometheus.Counter
}

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry served on /metrics

var globalManager *Manager //nolint:gochecknoglobals // default manager used when none is injected

func init() { //nolint:gochecknoinits // registers the default collectors once
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "insightpipe",
		subsystem:        "client",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.clientRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "requests_total",
		Help:        "Backend API requests by operation and status class",
		ConstLabels: m.constLabels,
	}, []string{"operation", "status_class"})

	m.clientRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "request_duration_milliseconds",
		Help:        "Backend API round-trip time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"operation"})

	m.clientErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_total",
		Help:        "Backend API failures by operation and kind (transport, status, decode)",
		ConstLabels: m.constLabels,
	}, []string{"operation", "kind"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "devserver",
		Name:        "http_requests_total",
		Help:        "Development server requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "devserver",
		Name:        "http_request_duration_milliseconds",
		Help:        "Development server request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "devserver",
		Name:        "http_errors_total",
		Help:        "Development server error responses by endpoint and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "error_type"})

	m.uiChanges = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "devserver",
		Name:        "ui_changes_total",
		Help:        "Debounced change batches seen under the web UI root",
		ConstLabels: m.constLabels,
	})
}

// RecordClientRequest counts one completed backend round trip.
func (m *Manager) RecordClientRequest(operation, statusClass string, durationMs float64) {
	if m == nil || !m.enabled {
		return
	}
	m.clientRequests.WithLabelValues(operation, statusClass).Inc()
	m.clientRequestDuration.WithLabelValues(operation).Observe(durationMs)
}

// RecordClientError counts a failed backend call.
func (m *Manager) RecordClientError(operation, kind string) {
	if m == nil || !m.enabled {
		return
	}
	m.clientErrors.WithLabelValues(operation, kind).Inc()
}

// RecordHTTPRequest records one request served by the development server.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if m == nil || !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// RecordHTTPError records an error response served by the development server.
func (m *Manager) RecordHTTPError(endpoint, errorType string) {
	if m == nil || !m.enabled {
		return
	}
	m.httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// RecordUIChange counts one batch of file changes under the UI root.
func (m *Manager) RecordUIChange() {
	if m == nil || !m.enabled {
		return
	}
	m.uiChanges.Inc()
}

// Default returns the process-wide manager registered on GetRegistry.
func Default() *Manager {
	return globalManager
}

// GetRegistry returns the registry behind the default manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
