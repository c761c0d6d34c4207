// Package metrics provides Prometheus metrics for the telemetry engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics
	eventsAccepted    prometheus.Counter
	eventsRejected    *prometheus.CounterVec
	eventsDuplicate   prometheus.Counter
	eventsDroppedLate prometheus.Counter

	// Timeline metrics
	timelineInsertLatency prometheus.Histogram
	timelineEntries       prometheus.Gauge
	liveSessions          prometheus.Gauge

	// Lane metrics (per-session serialized ingestion)
	laneDepth prometheus.Gauge
	laneCount prometheus.Gauge

	// Violation metrics
	violationsDetected *prometheus.CounterVec

	// Passport / scoring metrics
	passportsComputed prometheus.Counter
	scoringFailures   prometheus.Counter
	scoringDuration   prometheus.Histogram

	// Query metrics
	askRequests      prometheus.Counter
	askLowConfidence prometheus.Counter
	askLatency       prometheus.Histogram

	// Store metrics
	storeRetries  prometheus.Counter
	storeFailures prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "talentlens",
		subsystem:        "engine",
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

	m.eventsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_accepted_total",
		Help:      "Total number of events accepted into a timeline",
	})

	m.eventsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_rejected_total",
			Help:      "Total number of rejected events by reason",
		},
		[]string{"reason"},
	)

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of duplicate events detected",
	})

	m.eventsDroppedLate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_dropped_late_total",
		Help:      "Total number of events dropped for arriving beyond the grace window",
	})

	m.timelineInsertLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "timeline_insert_latency_milliseconds",
		Help:      "Timeline insert latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.timelineEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "timeline_entries",
		Help:      "Total number of timeline entries across live sessions",
	})

	m.liveSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_sessions",
		Help:      "Number of sessions currently accepting events",
	})

	m.laneDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lane_depth",
		Help:      "Total queued events across per-session ingestion lanes",
	})

	m.laneCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lane_count",
		Help:      "Number of active per-session ingestion lanes",
	})

	m.violationsDetected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "violations_detected_total",
			Help:      "Total number of integrity violations by type and severity",
		},
		[]string{"type", "severity"},
	)

	m.passportsComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passports_computed_total",
		Help:      "Total number of passport recomputations completed",
	})

	m.scoringFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_failures_total",
		Help:      "Total number of aborted passport recomputations",
	})

	m.scoringDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_duration_milliseconds",
		Help:      "Passport recomputation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.askRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ask_requests_total",
		Help:      "Total number of timeline questions answered",
	})

	m.askLowConfidence = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ask_low_confidence_total",
		Help:      "Total number of questions answered in low-confidence fallback mode",
	})

	m.askLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ask_latency_milliseconds",
		Help:      "Question answering latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_retries_total",
		Help:      "Total number of store write retries after transient failures",
	})

	m.storeFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_failures_total",
		Help:      "Total number of store writes that exhausted all retries",
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

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordEventAccepted increments the accepted events counter.
func RecordEventAccepted() {
	globalManager.eventsAccepted.Inc()
}

// RecordEventRejected increments the rejected events counter for a reason.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventDroppedLate increments the dropped-late events counter.
func RecordEventDroppedLate() {
	globalManager.eventsDroppedLate.Inc()
}

// RecordTimelineInsertLatency records a timeline insert latency observation.
func RecordTimelineInsertLatency(latencyMs float64) {
	globalManager.timelineInsertLatency.Observe(latencyMs)
}

// UpdateTimelineEntries sets the total live timeline entry count.
func UpdateTimelineEntries(count int) {
	globalManager.timelineEntries.Set(float64(count))
}

// UpdateLiveSessions sets the live session count.
func UpdateLiveSessions(count int) {
	globalManager.liveSessions.Set(float64(count))
}

// UpdateLaneDepth sets the total queued events across lanes.
func UpdateLaneDepth(depth int) {
	globalManager.laneDepth.Set(float64(depth))
}

// UpdateLaneCount sets the active lane count.
func UpdateLaneCount(count int) {
	globalManager.laneCount.Set(float64(count))
}

// RecordViolation increments the violation counter for a type and severity.
func RecordViolation(violationType, severity string) {
	globalManager.violationsDetected.WithLabelValues(violationType, severity).Inc()
}

// RecordPassportComputed increments the passports computed counter.
func RecordPassportComputed() {
	globalManager.passportsComputed.Inc()
}

// RecordScoringFailure increments the scoring failures counter.
func RecordScoringFailure() {
	globalManager.scoringFailures.Inc()
}

// RecordScoringDuration records a passport recomputation duration.
func RecordScoringDuration(durationMs float64) {
	globalManager.scoringDuration.Observe(durationMs)
}

// RecordAskRequest increments the ask requests counter.
func RecordAskRequest() {
	globalManager.askRequests.Inc()
}

// RecordAskLowConfidence increments the low-confidence fallback counter.
func RecordAskLowConfidence() {
	globalManager.askLowConfidence.Inc()
}

// RecordAskLatency records a question answering latency observation.
func RecordAskLatency(latencyMs float64) {
	globalManager.askLatency.Observe(latencyMs)
}

// RecordStoreRetry increments the store retry counter.
func RecordStoreRetry() {
	globalManager.storeRetries.Inc()
}

// RecordStoreFailure increments the store failure counter.
func RecordStoreFailure() {
	globalManager.storeFailures.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager, for
// serving scrapes without the default Go collectors.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
