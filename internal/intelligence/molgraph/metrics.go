package molgraph

import "time"

// Batch build outcomes reported to Metrics.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics receives one observation per BuildBatch call.  The Prometheus
// AppMetrics satisfies it.
type Metrics interface {
	ObserveBatch(status string, molecules, atoms, edges, triplets int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveBatch(string, int, int, int, int, time.Duration) {}

// NewNoopMetrics returns a Metrics that records nothing.
func NewNoopMetrics() Metrics { return noopMetrics{} }
