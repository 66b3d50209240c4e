// Package metrics provides Prometheus metrics for the rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus series for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Queue health. The backlog gauge is the operator's main window into
	// the service: requests enqueued but not yet processed.
	backlogSize     prometheus.Gauge
	queueCapacity   prometheus.Gauge
	requestsQueued  prometheus.Counter
	requestsDequeue prometheus.Counter
	enqueueErrors   prometheus.Counter

	// Worker pipeline.
	requestsRated     prometheus.Counter
	requestsDropped   *prometheus.CounterVec
	processingLatency prometheus.Histogram

	// Persistence and notification.
	ratingsPersisted       prometheus.Counter
	persistenceErrors      prometheus.Counter
	notificationsPublished prometheus.Counter
	notificationErrors     prometheus.Counter

	// Rating-type directory.
	directorySize      prometheus.Gauge
	directoryRefreshes prometheus.Counter
	directoryErrors    prometheus.Counter

	// Ops HTTP surface.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "faf",
		subsystem:        "rating_service",
		histogramBuckets: prometheus.DefBuckets,
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

	m.backlogSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "backlog",
		Help:      "Number of rating requests enqueued but not yet processed",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured capacity of the rating request queue",
	})

	m.requestsQueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_enqueued_total",
		Help:      "Total number of rating requests accepted onto the queue",
	})

	m.requestsDequeue = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_dequeued_total",
		Help:      "Total number of rating requests handed to the worker",
	})

	m.enqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enqueue_errors_total",
		Help:      "Total number of rejected enqueue attempts",
	})

	m.requestsRated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_rated_total",
		Help:      "Total number of games rated end to end",
	})

	m.requestsDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "requests_dropped_total",
			Help:      "Total number of rating requests dropped, by reason",
		},
		[]string{"reason"},
	)

	m.processingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "processing_latency_milliseconds",
		Help:      "Histogram of per-game processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.ratingsPersisted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_persisted_total",
		Help:      "Total number of per-player rating rows written",
	})

	m.persistenceErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_errors_total",
		Help:      "Total number of failed store writes",
	})

	m.notificationsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_published_total",
		Help:      "Total number of rating-changed events published",
	})

	m.notificationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_errors_total",
		Help:      "Total number of failed rating-changed publishes",
	})

	m.directorySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "directory_size",
		Help:      "Number of rating scopes in the current directory snapshot",
	})

	m.directoryRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "directory_refreshes_total",
		Help:      "Total number of completed directory refreshes",
	})

	m.directoryErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "directory_errors_total",
		Help:      "Total number of failed directory refreshes",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// UpdateBacklogSize sets the backlog gauge. Called after every enqueue and
// dequeue.
func UpdateBacklogSize(size int) {
	globalManager.backlogSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordEnqueue increments the accepted-enqueue counter.
func RecordEnqueue() {
	globalManager.requestsQueued.Inc()
}

// RecordDequeue increments the dequeue counter.
func RecordDequeue() {
	globalManager.requestsDequeue.Inc()
}

// RecordEnqueueError increments the rejected-enqueue counter.
func RecordEnqueueError() {
	globalManager.enqueueErrors.Inc()
}

// RecordRequestRated increments the rated-games counter.
func RecordRequestRated() {
	globalManager.requestsRated.Inc()
}

// RecordRequestDropped increments the dropped-request counter for a reason.
func RecordRequestDropped(reason string) {
	globalManager.requestsDropped.WithLabelValues(reason).Inc()
}

// RecordProcessingLatency records per-game processing latency in milliseconds.
func RecordProcessingLatency(latencyMs float64) {
	globalManager.processingLatency.Observe(latencyMs)
}

// RecordRatingPersisted increments the persisted rating-row counter.
func RecordRatingPersisted() {
	globalManager.ratingsPersisted.Inc()
}

// RecordPersistenceError increments the failed store write counter.
func RecordPersistenceError() {
	globalManager.persistenceErrors.Inc()
}

// RecordNotificationPublished increments the published notification counter.
func RecordNotificationPublished() {
	globalManager.notificationsPublished.Inc()
}

// RecordNotificationError increments the failed publish counter.
func RecordNotificationError() {
	globalManager.notificationErrors.Inc()
}

// UpdateDirectorySize sets the directory snapshot size gauge.
func UpdateDirectorySize(size int) {
	globalManager.directorySize.Set(float64(size))
}

// RecordDirectoryRefresh increments the completed refresh counter.
func RecordDirectoryRefresh() {
	globalManager.directoryRefreshes.Inc()
}

// RecordDirectoryError increments the failed refresh counter.
func RecordDirectoryError() {
	globalManager.directoryErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom registry for the ops metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
