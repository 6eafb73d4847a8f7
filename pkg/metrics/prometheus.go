// Package metrics provides Prometheus metrics for the vitrine feed service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	sizeBuckets      []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Feed pipeline
	feedRequests       *prometheus.CounterVec
	feedSize           *prometheus.HistogramVec
	feedLatency        *prometheus.HistogramVec
	candidatePool      *prometheus.GaugeVec
	gateRejections     prometheus.Counter
	profileFallbacks   *prometheus.CounterVec
	promotedServed     *prometheus.CounterVec
	candidateDataFault *prometheus.CounterVec

	// Engagement side effects
	engagementEnqueued *prometheus.CounterVec
	engagementDropped  *prometheus.CounterVec
	engagementApplied  *prometheus.CounterVec
	engagementErrors   prometheus.Counter
	engagementLatency  prometheus.Histogram

	// Storage
	repoQueryLatency *prometheus.HistogramVec

	// Queue + workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	workerCount      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vitrine",
		subsystem:        "feed",
		histogramBuckets: prometheus.DefBuckets,
		sizeBuckets:      []float64{0, 1, 5, 10, 20, 30, 40, 50, 75, 100, 200},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.feedRequests = m.counterVec("requests_total",
		"Feed requests served, by feed and personalization", "feed", "personalized")

	m.feedSize = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "size_items",
		Help:        "Number of items returned per feed response",
		Buckets:     m.sizeBuckets,
		ConstLabels: m.constLabels,
	}, []string{"feed"})

	m.feedLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranking_latency_milliseconds",
		Help:        "Time spent gating, scoring and assembling one feed",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"feed"})

	m.candidatePool = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "candidate_pool_size",
		Help:        "Active candidates loaded for the most recent feed request",
		ConstLabels: m.constLabels,
	}, []string{"feed"})

	m.gateRejections = m.counter("gate_rejections_total",
		"Videos removed by the performance gate")

	m.profileFallbacks = m.counterVec("profile_fallbacks_total",
		"Preference profile lookups that degraded to the anonymous profile", "reason")

	m.promotedServed = m.counterVec("promoted_served_total",
		"Actively promoted candidates included in a response", "feed")

	m.candidateDataFault = m.counterVec("candidate_data_faults_total",
		"Per-candidate auxiliary data that failed to parse and was dropped", "field")

	m.engagementEnqueued = m.counterVec("engagement_enqueued_total",
		"Engagement counter bumps accepted by the queue", "counter")

	m.engagementDropped = m.counterVec("engagement_dropped_total",
		"Engagement counter bumps dropped before reaching the store", "reason")

	m.engagementApplied = m.counterVec("engagement_applied_total",
		"Engagement counter bumps written to the store", "counter")

	m.engagementErrors = m.counter("engagement_errors_total",
		"Engagement counter bumps that failed in the store")

	m.engagementLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "engagement_apply_latency_milliseconds",
		Help:        "Latency of one engagement counter write",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.repoQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_query_latency_milliseconds",
		Help:        "Repository query latency by operation",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"operation"})

	m.queueSize = m.gauge("queue_size", "Current size of the engagement queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the engagement queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Engagement queue size / capacity")
	m.workerCount = m.gauge("worker_count", "Engagement workers running")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")

	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"HTTP errors by endpoint, method and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// RecordFeedRequest counts one served feed.
func RecordFeedRequest(feed string, personalized bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedRequests.WithLabelValues(feed, boolLabel(personalized)).Inc()
}

// RecordFeedSize observes how many items a feed returned.
func RecordFeedSize(feed string, size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedSize.WithLabelValues(feed).Observe(float64(size))
}

// RecordRankingLatency observes the gate+score+assemble time for a feed.
func RecordRankingLatency(feed string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.feedLatency.WithLabelValues(feed).Observe(latencyMs)
}

// UpdateCandidatePool records the size of the latest candidate snapshot.
func UpdateCandidatePool(feed string, size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.candidatePool.WithLabelValues(feed).Set(float64(size))
}

// RecordGateRejections adds n gate rejections.
func RecordGateRejections(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.gateRejections.Add(float64(n))
}

// RecordProfileFallback counts an anonymous-profile fallback.
func RecordProfileFallback(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.profileFallbacks.WithLabelValues(reason).Inc()
}

// RecordPromotedServed adds n promoted items served in a feed.
func RecordPromotedServed(feed string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.promotedServed.WithLabelValues(feed).Add(float64(n))
}

// RecordCandidateDataFault counts a dropped auxiliary field.
func RecordCandidateDataFault(field string) {
	if !globalManager.enabled {
		return
	}
	globalManager.candidateDataFault.WithLabelValues(field).Inc()
}

// RecordEngagementEnqueued counts an accepted counter bump.
func RecordEngagementEnqueued(counter string) {
	if !globalManager.enabled {
		return
	}
	globalManager.engagementEnqueued.WithLabelValues(counter).Inc()
}

// RecordEngagementDropped counts a counter bump that never reached the store.
func RecordEngagementDropped(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.engagementDropped.WithLabelValues(reason).Inc()
}

// RecordEngagementApplied counts a written counter bump.
func RecordEngagementApplied(counter string) {
	if !globalManager.enabled {
		return
	}
	globalManager.engagementApplied.WithLabelValues(counter).Inc()
}

// RecordEngagementError counts a failed counter write.
func RecordEngagementError() {
	if !globalManager.enabled {
		return
	}
	globalManager.engagementErrors.Inc()
}

// RecordEngagementLatency observes one counter write.
func RecordEngagementLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.engagementLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency observes one repository operation.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repoQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets size / capacity.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Init rebuilds the global manager from opts on a fresh registry. Call it
// once at startup, before handlers capture GetRegistry.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(reg))...)
	customRegistry = reg
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval is how often gauge-style system metrics should be sampled.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
