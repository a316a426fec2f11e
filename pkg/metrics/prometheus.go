// Package metrics provides Prometheus metrics for the geocluster service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes used as the outcome label of runs_total.
const (
	OutcomeOK          = "ok"
	OutcomeSchemaError = "schema_error"
	OutcomeCoordError  = "coordinate_error"
	OutcomeParamsError = "params_error"
	OutcomeError       = "error"
)

var outcomes = map[string]struct{}{
	OutcomeOK:          {},
	OutcomeSchemaError: {},
	OutcomeCoordError:  {},
	OutcomeParamsError: {},
	OutcomeError:       {},
}

// Manager manages all Prometheus metrics for the geocluster service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Clustering
	runs             *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	emIterations     prometheus.Histogram
	emConverged      *prometheus.CounterVec
	emReseeds        prometheus.Counter
	selectedK        prometheus.Histogram
	recordsClustered prometheus.Counter
	hullsBuilt       prometheus.Counter
	hullsSkipped     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Jobs
	jobsSubmitted prometheus.Counter
	jobsDuplicate prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsStored    prometheus.Gauge
	jobsEvicted   prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "geocluster",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(m.counterOpts("runs_total",
		"Clustering runs by strategy and outcome"), []string{"strategy", "outcome"})
	m.runDuration = auto.NewHistogramVec(m.histogramOpts("run_duration_milliseconds",
		"Wall time of successful clustering runs", nil), []string{"strategy"})
	m.emIterations = auto.NewHistogram(m.histogramOpts("em_iterations",
		"EM iterations per fitted model", []float64{1, 2, 5, 10, 20, 50, 100, 200}))
	m.emConverged = auto.NewCounterVec(m.counterOpts("em_fits_total",
		"Fitted models by convergence"), []string{"converged"})
	m.emReseeds = auto.NewCounter(m.counterOpts("em_reseeds_total",
		"Collapsed mixture components re-seeded during EM"))
	m.selectedK = auto.NewHistogram(m.histogramOpts("selected_k",
		"Number of clusters chosen per run", []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}))
	m.recordsClustered = auto.NewCounter(m.counterOpts("records_clustered_total",
		"Records labeled by successful runs"))
	m.hullsBuilt = auto.NewCounter(m.counterOpts("hulls_built_total",
		"Cluster hull polygons produced"))
	m.hullsSkipped = auto.NewCounter(m.counterOpts("hulls_skipped_total",
		"Clusters without a polygon (fewer than 3 distinct or collinear points)"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", nil), []string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueue attempts"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently running a job"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time a worker spends on one job", nil))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs that failed in a worker"))

	m.jobsSubmitted = auto.NewCounter(m.counterOpts("jobs_submitted_total", "Jobs accepted for processing"))
	m.jobsDuplicate = auto.NewCounter(m.counterOpts("jobs_duplicate_total", "Submissions matched to an existing request id"))
	m.jobsCompleted = auto.NewCounterVec(m.counterOpts("jobs_completed_total",
		"Jobs reaching a terminal state"), []string{"status"})
	m.jobsStored = auto.NewGauge(m.gaugeOpts("jobs_stored", "Jobs held in the job store"))
	m.jobsEvicted = auto.NewCounter(m.counterOpts("jobs_evicted_total", "Jobs evicted from the job store"))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds",
		"Latency of operations that resulted in errors", nil), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Run describes one finished clustering run.
type Run struct {
	Strategy   string
	K          int
	Records    int
	DurationMs float64
	// Fitted is false when the mixture was skipped; the EM fields are then ignored.
	Fitted     bool
	Iterations int
	Converged  bool
	Reseeds    int
	Hulls      int
	Clusters   int
}

// RecordRun records a successful run.
func (m *Manager) RecordRun(r Run) {
	m.runs.WithLabelValues(r.Strategy, OutcomeOK).Inc()
	m.runDuration.WithLabelValues(r.Strategy).Observe(r.DurationMs)
	m.selectedK.Observe(float64(r.K))
	m.recordsClustered.Add(float64(r.Records))
	m.hullsBuilt.Add(float64(r.Hulls))
	m.hullsSkipped.Add(float64(r.Clusters - r.Hulls))
	if r.Fitted {
		m.emIterations.Observe(float64(r.Iterations))
		m.emConverged.WithLabelValues(strconv.FormatBool(r.Converged)).Inc()
		m.emReseeds.Add(float64(r.Reseeds))
	}
}

// RecordRunFailure records a run that ended with an error outcome.
func (m *Manager) RecordRunFailure(strategy, outcome string) error {
	if _, ok := outcomes[outcome]; !ok || outcome == OutcomeOK {
		return ErrUnknownOutcome
	}
	m.runs.WithLabelValues(strategy, outcome).Inc()
	m.errorRateByComponent.WithLabelValues("engine", outcome).Inc()
	return nil
}

// RecordRun records a successful run on the global manager.
func RecordRun(r Run) {
	globalManager.RecordRun(r)
}

// RecordRunFailure records a failed run on the global manager.
func RecordRunFailure(strategy, outcome string) {
	if err := globalManager.RecordRunFailure(strategy, outcome); err != nil {
		_ = globalManager.RecordRunFailure(strategy, OutcomeError)
	}
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

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
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

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records the time spent on one job.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Job Metrics Functions.

// RecordJobSubmitted increments the accepted jobs counter.
func RecordJobSubmitted() {
	globalManager.jobsSubmitted.Inc()
}

// RecordJobDuplicate increments the duplicate submission counter.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// RecordJobCompleted counts a job reaching the given terminal status.
func RecordJobCompleted(status string) {
	globalManager.jobsCompleted.WithLabelValues(status).Inc()
}

// UpdateJobsStored sets the number of jobs in the store.
func UpdateJobsStored(count int) {
	globalManager.jobsStored.Set(float64(count))
}

// RecordJobEvicted increments the evicted jobs counter.
func RecordJobEvicted() {
	globalManager.jobsEvicted.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
