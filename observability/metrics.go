package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records insurance engine activity segmented by module and
// operation.
type EngineMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Metrics returns the lazily-initialised engine metrics registry.
func Metrics() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "coverchain",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total engine operations segmented by module, operation and outcome.",
			}, []string{"module", "operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "coverchain",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Total engine operation failures segmented by module and operation.",
			}, []string{"module", "operation"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "coverchain",
				Subsystem: "engine",
				Name:      "operation_seconds",
				Help:      "Engine operation latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "operation"}),
		}
		prometheus.MustRegister(engineRegistry.operations, engineRegistry.errors, engineRegistry.latency)
	})
	return engineRegistry
}

// Record tallies one engine operation. A nil error counts as success.
func (m *EngineMetrics) Record(module, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(module, operation).Inc()
	}
	m.operations.WithLabelValues(module, operation, outcome).Inc()
	m.latency.WithLabelValues(module, operation).Observe(time.Since(started).Seconds())
}
