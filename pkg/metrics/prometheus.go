// Package metrics provides Prometheus metrics for the sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync outcomes used as the "result" label.
const (
	ResultSuccess       = "success"
	ResultUnknownType   = "unknown_type"
	ResultPrimaryFailed = "primary_failed"
)

// scoreBuckets spans the 0-100 score range in steps of ten.
var scoreBuckets = prometheus.LinearBuckets(0, 10, 11) //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the sync service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Core Business Metrics
	syncsTotal         *prometheus.CounterVec
	syncLatency        prometheus.Histogram
	secondaryFailures  *prometheus.CounterVec
	batchesTotal       prometheus.Counter
	insightsGenerated  *prometheus.CounterVec
	overallScore       prometheus.Histogram
	requestsDuplicate  prometheus.Counter
	snapshotsPersisted prometheus.Counter

	// Repository Metrics
	repositoryShardCount     prometheus.Gauge
	repositoryRecordsTotal   prometheus.Gauge
	repositoryAppends        prometheus.Counter
	repositoryEvictions      prometheus.Counter
	repositoryAppendLatency  prometheus.Histogram
	repositoryQueryLatency   prometheus.Histogram
	repositorySnapshotWrites prometheus.Counter

	// Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Notification Metrics
	notificationsDispatched prometheus.Counter
	notificationsDuplicate  prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dodo",
		subsystem:        "sync",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Core Business Metrics
	m.syncsTotal = m.counterVec("syncs_total", "Total number of fan-out syncs by input type and result", "input_type", "result")
	m.syncLatency = m.histogram("sync_latency_milliseconds", "Fan-out sync latency in milliseconds", m.histogramBuckets)
	m.secondaryFailures = m.counterVec("secondary_failures_total", "Secondary writes that failed, by target agent", "agent")
	m.batchesTotal = m.counter("batches_total", "Total number of batch syncs")
	m.insightsGenerated = m.counterVec("insights_generated_total", "Insights produced by the correlation engine, by priority", "priority")
	m.overallScore = m.histogram("overall_score", "Distribution of computed overall scores", scoreBuckets)
	m.requestsDuplicate = m.counter("requests_duplicate_total", "Sync requests dropped because their request_id was already seen")
	m.snapshotsPersisted = m.counter("snapshots_persisted_total", "Daily score snapshots written")

	// Repository Metrics
	m.repositoryShardCount = m.gauge("repository_shard_count", "Total number of repository shards")
	m.repositoryRecordsTotal = m.gauge("repository_records_total", "Total number of events held across all agent logs")
	m.repositoryAppends = m.counter("repository_appends_total", "Total number of events appended to agent logs")
	m.repositoryEvictions = m.counter("repository_evictions_total", "Events evicted because an agent log was full")
	m.repositoryAppendLatency = m.histogram("repository_append_latency_milliseconds", "Repository append latency in milliseconds", m.histogramBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository query latency in milliseconds", m.histogramBuckets)
	m.repositorySnapshotWrites = m.counter("repository_snapshot_writes_total", "Snapshot rows upserted by the snapshot store")

	// Queue Metrics
	m.queueSize = m.gauge("queue_size", "Current size of the notification queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum notification queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of notifications enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of notifications dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Notifications dropped because the queue was full or closed")

	// Worker Metrics
	m.workerCount = m.gauge("worker_count", "Number of dispatcher workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently delivering a notification")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Notification delivery latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of failed notification deliveries")

	// Notification Metrics
	m.notificationsDispatched = m.counter("notifications_dispatched_total", "Notifications delivered to the notifier")
	m.notificationsDuplicate = m.counter("notifications_duplicate_total", "Notifications skipped because they already fired today")

	// HTTP Performance Metrics
	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
}

// RecordSync counts one fan-out sync and its latency.
func RecordSync(inputType, result string, latencyMs float64) {
	globalManager.syncsTotal.WithLabelValues(inputType, result).Inc()
	globalManager.syncLatency.Observe(latencyMs)
}

// RecordSecondaryFailure counts a failed secondary write.
func RecordSecondaryFailure(agent string) {
	globalManager.secondaryFailures.WithLabelValues(agent).Inc()
}

// RecordBatch counts a batch sync.
func RecordBatch() {
	globalManager.batchesTotal.Inc()
}

// RecordInsight counts a generated insight.
func RecordInsight(priority string) {
	globalManager.insightsGenerated.WithLabelValues(priority).Inc()
}

// RecordOverallScore observes a computed overall score.
func RecordOverallScore(score int) {
	globalManager.overallScore.Observe(float64(score))
}

// RecordRequestDuplicate counts a sync request dropped as a duplicate.
func RecordRequestDuplicate() {
	globalManager.requestsDuplicate.Inc()
}

// RecordSnapshotPersisted counts a daily snapshot write.
func RecordSnapshotPersisted() {
	globalManager.snapshotsPersisted.Inc()
}

// Repository Metrics Functions.

// UpdateRepositoryShardCount sets the total number of repository shards.
func UpdateRepositoryShardCount(count int) {
	globalManager.repositoryShardCount.Set(float64(count))
}

// UpdateRepositoryRecordsTotal sets the total number of events held.
func UpdateRepositoryRecordsTotal(count int) {
	globalManager.repositoryRecordsTotal.Set(float64(count))
}

// RecordRepositoryAppend counts an append and its latency.
func RecordRepositoryAppend(latencyMs float64) {
	globalManager.repositoryAppends.Inc()
	globalManager.repositoryAppendLatency.Observe(latencyMs)
}

// RecordRepositoryEviction counts an event dropped from a full log.
func RecordRepositoryEviction() {
	globalManager.repositoryEvictions.Inc()
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositorySnapshotWrite counts an upserted snapshot row.
func RecordRepositorySnapshotWrite() {
	globalManager.repositorySnapshotWrites.Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the number of dispatcher workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Notification Metrics Functions.

// RecordNotificationDispatched counts a delivered notification.
func RecordNotificationDispatched() {
	globalManager.notificationsDispatched.Inc()
}

// RecordNotificationDuplicate counts a notification that already fired today.
func RecordNotificationDuplicate() {
	globalManager.notificationsDuplicate.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
