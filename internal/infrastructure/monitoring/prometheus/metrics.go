package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Batch Layer
	BatchBuildsTotal   CounterVec
	BatchBuildDuration HistogramVec
	BatchMolecules     HistogramVec
	BatchAtoms         HistogramVec
	BatchEdges         HistogramVec
	BatchTriplets      HistogramVec

	// Dataset
	DatasetMolecules GaugeVec
	DatasetAtoms     GaugeVec

	// Infrastructure Layer
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessagesTotal          CounterVec
	MessageProcessDuration SummaryVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultBatchDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultCountBuckets         = []float64{1, 10, 100, 1000, 10000, 100000, 1000000}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests")

	// Batch
	m.BatchBuildsTotal = collector.RegisterCounter("batch_builds_total", "Batch index builds", "status")
	m.BatchBuildDuration = collector.RegisterHistogram("batch_build_duration_seconds", "Batch index build duration", DefaultBatchDurationBuckets, "status")
	m.BatchMolecules = collector.RegisterHistogram("batch_molecules", "Molecules per built batch", DefaultCountBuckets)
	m.BatchAtoms = collector.RegisterHistogram("batch_atoms", "Atoms per built batch", DefaultCountBuckets)
	m.BatchEdges = collector.RegisterHistogram("batch_edges", "Edges per built batch", DefaultCountBuckets)
	m.BatchTriplets = collector.RegisterHistogram("batch_triplets", "Triplets per built batch", DefaultCountBuckets)

	// Dataset
	m.DatasetMolecules = collector.RegisterGauge("dataset_molecules", "Molecules in the loaded dataset")
	m.DatasetAtoms = collector.RegisterGauge("dataset_atoms", "Atoms in the loaded dataset")

	// Infrastructure
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessagesTotal = collector.RegisterCounter("messages_total", "Messages handled", "topic", "status")
	m.MessageProcessDuration = collector.RegisterSummary("message_process_duration_seconds", "Message processing duration", nil, "topic")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Recorders.  Every method is a no-op on a nil receiver so components can
// hold an optional *AppMetrics.

// ObserveBatch records one batch build.
func (m *AppMetrics) ObserveBatch(status string, molecules, atoms, edges, triplets int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchBuildsTotal.WithLabelValues(status).Inc()
	m.BatchBuildDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if status != "ok" {
		return
	}
	m.BatchMolecules.WithLabelValues().Observe(float64(molecules))
	m.BatchAtoms.WithLabelValues().Observe(float64(atoms))
	m.BatchEdges.WithLabelValues().Observe(float64(edges))
	m.BatchTriplets.WithLabelValues().Observe(float64(triplets))
}

// RecordHTTPRequest records one served request.
func (m *AppMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RequestStarted and RequestFinished track in-flight requests.
func (m *AppMetrics) RequestStarted() {
	if m != nil {
		m.HTTPActiveRequests.WithLabelValues().Inc()
	}
}

// RequestFinished is the counterpart of RequestStarted.
func (m *AppMetrics) RequestFinished() {
	if m != nil {
		m.HTTPActiveRequests.WithLabelValues().Dec()
	}
}

// RecordCacheAccess records a cache lookup.
func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordMessage records one consumed or published message.
func (m *AppMetrics) RecordMessage(topic, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(topic, status).Inc()
	if duration > 0 {
		m.MessageProcessDuration.WithLabelValues(topic).Observe(duration.Seconds())
	}
}

// SetDataset publishes the loaded dataset's size.
func (m *AppMetrics) SetDataset(molecules, atoms int) {
	if m == nil {
		return
	}
	m.DatasetMolecules.WithLabelValues().Set(float64(molecules))
	m.DatasetAtoms.WithLabelValues().Set(float64(atoms))
}

// SetHealth records a component health check result.
func (m *AppMetrics) SetHealth(component string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

// RecordError counts an error by component and error code.
func (m *AppMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
