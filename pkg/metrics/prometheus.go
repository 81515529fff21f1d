// Package metrics provides Prometheus metrics for the kpiboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by kpiboard.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	peopleScored     *prometheus.CounterVec
	compositeScore   prometheus.Histogram
	teamAvgKPIScore  prometheus.Gauge
	teamRevenueRatio prometheus.Gauge
	teamPeople       prometheus.Gauge

	// Refresh from the CRM backend
	refreshTotal       *prometheus.CounterVec
	refreshDuration    prometheus.Histogram
	fetchFailures      *prometheus.CounterVec
	crmRequestDuration *prometheus.HistogramVec

	// Snapshot ingestion
	snapshotsAccepted  prometheus.Counter
	snapshotsDuplicate prometheus.Counter
	snapshotsRejected  *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Repository
	repositoryRecords         prometheus.Gauge
	repositoryUpdateLatency   prometheus.Histogram
	repositoryQueryLatency    prometheus.Histogram
	repositorySnapshotRebuild prometheus.Histogram
	repositorySnapshotCount   prometheus.Counter
	repositorySnapshotLast    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the Record* helpers

// Custom registry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // shared registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kpiboard",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}, labels)
}

// initializeMetrics creates all collectors on the configured registry.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	latencyMs := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
	compositeBuckets := prometheus.LinearBuckets(100, 100, 10)

	m.peopleScored = m.counterVec("people_scored_total", "Salespeople scored, by level", "level")
	m.compositeScore = m.histogram("composite_score", "Distribution of composite KPI scores (0-1000)", compositeBuckets)
	m.teamAvgKPIScore = m.gauge("team_avg_kpi_score", "Average sub-score across the team from the last rollup")
	m.teamRevenueRatio = m.gauge("team_revenue_progress_percent", "Team revenue achieved as percent of target")
	m.teamPeople = m.gauge("team_people", "Salespeople in the last team rollup")

	m.refreshTotal = m.counterVec("refresh_total", "Team refreshes from the CRM backend, by status", "status")
	m.refreshDuration = m.histogram("refresh_duration_seconds", "Duration of a full team refresh", m.histogramBuckets)
	m.fetchFailures = m.counterVec("fetch_failures_total", "Failed CRM fetches, by operation", "operation")
	m.crmRequestDuration = m.histogramVec("crm_request_duration_seconds", "CRM REST request duration",
		m.histogramBuckets, "operation", "status_code")

	m.snapshotsAccepted = m.counter("snapshots_accepted_total", "Pushed snapshots accepted for scoring")
	m.snapshotsDuplicate = m.counter("snapshots_duplicate_total", "Pushed snapshots dropped as duplicates")
	m.snapshotsRejected = m.counterVec("snapshots_rejected_total", "Pushed snapshots rejected, by reason", "reason")

	m.queueSize = m.gauge("queue_size", "Snapshots waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Snapshots enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Snapshots dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts rejected")

	m.workerCount = m.gauge("worker_count", "Running scoring workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time for a worker to score and store one snapshot", latencyMs)
	m.workerErrors = m.counter("worker_errors_total", "Snapshots a worker failed to process")

	m.repositoryRecords = m.gauge("repository_records", "Salespeople held by the ranking store")
	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Ranking store upsert latency", latencyMs)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Ranking store query latency", latencyMs)
	m.repositorySnapshotRebuild = m.histogram("repository_snapshot_rebuild_seconds",
		"Time to rebuild the ranking snapshot", m.histogramBuckets)
	m.repositorySnapshotCount = m.counter("repository_snapshots_total", "Ranking snapshots published")
	m.repositorySnapshotLast = m.gauge("repository_snapshot_last_unix", "Unix time of the last ranking snapshot")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests served",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request duration",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors, by component and type",
		"component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors, by endpoint",
		"endpoint", "method", "error_type")
}

// RecordComposite records one scored salesperson.
func RecordComposite(composite int, level string) {
	globalManager.peopleScored.WithLabelValues(level).Inc()
	globalManager.compositeScore.Observe(float64(composite))
}

// UpdateTeamSummary publishes the latest team rollup.
func UpdateTeamSummary(people, avgKPIScore int, revenueProgress float64) {
	globalManager.teamPeople.Set(float64(people))
	globalManager.teamAvgKPIScore.Set(float64(avgKPIScore))
	globalManager.teamRevenueRatio.Set(revenueProgress)
}

// RecordRefresh records a finished refresh with its status ("ok" or "failed").
func RecordRefresh(status string, seconds float64) {
	globalManager.refreshTotal.WithLabelValues(status).Inc()
	globalManager.refreshDuration.Observe(seconds)
}

// RecordFetchFailure increments the failed CRM fetch counter.
func RecordFetchFailure(operation string) {
	globalManager.fetchFailures.WithLabelValues(operation).Inc()
}

// RecordCRMRequest records the duration of one CRM REST call.
func RecordCRMRequest(operation, statusCode string, seconds float64) {
	globalManager.crmRequestDuration.WithLabelValues(operation, statusCode).Observe(seconds)
}

// RecordSnapshotAccepted increments the accepted snapshot counter.
func RecordSnapshotAccepted() {
	globalManager.snapshotsAccepted.Inc()
}

// RecordSnapshotDuplicate increments the duplicate snapshot counter.
func RecordSnapshotDuplicate() {
	globalManager.snapshotsDuplicate.Inc()
}

// RecordSnapshotRejected increments the rejected snapshot counter.
func RecordSnapshotRejected(reason string) {
	globalManager.snapshotsRejected.WithLabelValues(reason).Inc()
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-snapshot worker latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateRepositoryRecords sets the number of people in the ranking store.
func UpdateRepositoryRecords(count int) {
	globalManager.repositoryRecords.Set(float64(count))
}

// RecordRepositoryUpdateLatency records upsert latency in milliseconds.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records query latency in milliseconds.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositorySnapshot records a published ranking snapshot.
func RecordRepositorySnapshot(seconds float64, unix int64) {
	globalManager.repositorySnapshotRebuild.Observe(seconds)
	globalManager.repositorySnapshotCount.Inc()
	globalManager.repositorySnapshotLast.Set(float64(unix))
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the registry every kpiboard collector is registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
