package walbsim

import "github.com/walb-linux/walbsim/internal/metrics"

// Metrics, MetricsSnapshot, Observer, NoOpObserver, and MetricsObserver are
// re-exported so callers never need to import internal/metrics directly.
type (
	Metrics         = metrics.Metrics
	MetricsSnapshot = metrics.MetricsSnapshot
	Observer        = metrics.Observer
	NoOpObserver    = metrics.NoOpObserver
	MetricsObserver = metrics.MetricsObserver
)

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics { return metrics.NewMetrics() }

// NewMetricsObserver creates an Observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver { return metrics.NewMetricsObserver(m) }
