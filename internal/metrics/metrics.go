// Package metrics exposes Prometheus metrics for pipeline runs.
//
// Metrics (all namespaced with "recipegrid_"):
//
//   - modules_inflight (gauge): modules currently Running.
//   - module_duration_seconds (histogram): Process duration by module kind and terminal state.
//   - module_outcomes_total (counter): terminal module states by kind, state and failure kind.
//   - runs_total (counter): finished runs by verdict.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recipegrid"

// Metrics holds the registered collectors.
type Metrics struct {
	inflight prometheus.Gauge
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

// New creates and registers the collectors with registry. A nil registry
// means prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modules_inflight",
			Help:      "Number of modules currently running.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "module_duration_seconds",
			Help:      "Time modules spent running, from start to terminal state.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		}, []string{"module", "state"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_outcomes_total",
			Help:      "Terminal module states, including modules that never started.",
		}, []string{"module", "state", "kind"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished pipeline runs by verdict.",
		}, []string{"verdict"}),
	}
}

// ModuleStarted records a module entering Running.
func (m *Metrics) ModuleStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// ModuleFinished records a module that ran and reached a terminal state.
func (m *Metrics) ModuleFinished(kind, state, failureKind string, d time.Duration) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.duration.WithLabelValues(kind, state).Observe(d.Seconds())
	m.outcomes.WithLabelValues(kind, state, failureKind).Inc()
}

// ModuleSkipped records a module that failed without ever running.
func (m *Metrics) ModuleSkipped(kind, failureKind string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, "Failed", failureKind).Inc()
}

// RunFinished records the verdict of a run.
func (m *Metrics) RunFinished(verdict string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(verdict).Inc()
}
