package prometheus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.BatchBuildDuration)
	assert.NotNil(t, m.BatchTriplets)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.MessageProcessDuration)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestObserveBatch_OK(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.ObserveBatch("ok", 2, 5, 8, 6, 3*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_batch_builds_total{status="ok"} 1`)
	assert.Contains(t, output, `test_unit_batch_build_duration_seconds_count{status="ok"} 1`)
	assert.Contains(t, output, "test_unit_batch_edges_sum 8")
	assert.Contains(t, output, "test_unit_batch_triplets_sum 6")
	assert.Contains(t, output, "test_unit_batch_atoms_sum 5")
}

func TestObserveBatch_ErrorSkipsSizes(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.ObserveBatch("error", 3, 0, 0, 0, time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_batch_builds_total{status="error"} 1`)
	assert.NotContains(t, output, "test_unit_batch_molecules_count")
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RequestStarted()
	m.RecordHTTPRequest("POST", "/api/v1/batches", 200, 10*time.Millisecond)
	m.RequestFinished()

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="POST",path="/api/v1/batches",status_code="200"} 1`)
	assert.Contains(t, output, `test_unit_http_request_duration_seconds_count{method="POST",path="/api/v1/batches"} 1`)
	assert.Contains(t, output, "test_unit_http_active_requests 0")
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RecordCacheAccess("batch", true)
	m.RecordCacheAccess("batch", false)
	m.RecordCacheAccess("batch", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_cache_hits_total{cache="batch"} 1`)
	assert.Contains(t, output, `test_unit_cache_misses_total{cache="batch"} 2`)
}

func TestRecordMessage(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.RecordMessage("molgraph.batch.request", "ok", 20*time.Millisecond)
	m.RecordMessage("molgraph.batch.result", "published", 0)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_messages_total{status="ok",topic="molgraph.batch.request"} 1`)
	assert.Contains(t, output, `test_unit_message_process_duration_seconds_count{topic="molgraph.batch.request"} 1`)
	assert.NotContains(t, output, `test_unit_message_process_duration_seconds_count{topic="molgraph.batch.result"}`)
}

func TestGaugesAndErrors(t *testing.T) {
	m, c := newTestAppMetrics(t)
	m.SetDataset(130831, 2358210)
	m.SetHealth("redis", false)
	m.SetHealth("dataset", true)
	m.RecordError("http", "GRAPH_003")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, "test_unit_dataset_molecules 130831")
	assert.Contains(t, output, `test_unit_health_check_status{component="redis"} 0`)
	assert.Contains(t, output, `test_unit_health_check_status{component="dataset"} 1`)
	assert.Contains(t, output, `test_unit_errors_total{code="GRAPH_003",component="http"} 1`)
}

func TestNilAppMetrics(t *testing.T) {
	var m *AppMetrics
	assert.NotPanics(t, func() {
		m.ObserveBatch("ok", 1, 1, 0, 0, time.Millisecond)
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RequestStarted()
		m.RequestFinished()
		m.RecordCacheAccess("batch", true)
		m.RecordMessage("t", "ok", time.Millisecond)
		m.SetDataset(1, 1)
		m.SetHealth("x", true)
		m.RecordError("x", "y")
	})
}

func TestConcurrentMetricRecording(t *testing.T) {
	m, c := newTestAppMetrics(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_http_requests_total{method="GET",path="/healthz",status_code="200"} 1000`)
}
