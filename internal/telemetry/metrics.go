// Package telemetry exposes the analysis core's Prometheus metrics:
// per-run timing, per-ring fit outcomes, and the coordinator's current
// state, so an operator can watch a long-running analysis without
// tailing logs.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the analysis core's counters and gauges. The
// coordinator updates RingFitsTotal, CenterSearchIterations and
// CoordinatorState as a run progresses; RunsTotal, RunDuration and
// PressureDeficitPa are registered but nothing in the analysis core
// updates them.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RingFitsTotal   *prometheus.CounterVec // labeled "result" = ok|failed
	CenterSearchIterations prometheus.Histogram
	PressureDeficitPa prometheus.Gauge
	CoordinatorState prometheus.Gauge // numeric state, see coordinator.State
}

// New registers and returns a Metrics bundle against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry across parallel test runs.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vortrac",
			Name:      "runs_total",
			Help:      "Total analysis runs, labeled by terminal outcome.",
		}, []string{"outcome"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vortrac",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a full analysis run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		RingFitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vortrac",
			Name:      "ring_fits_total",
			Help:      "GBVTD ring fit attempts, labeled by result.",
		}, []string{"result"}),
		CenterSearchIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vortrac",
			Name:      "center_search_iterations",
			Help:      "Simplex iterations used per level's center search.",
			Buckets:   prometheus.LinearBuckets(0, 20, 10),
		}),
		PressureDeficitPa: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vortrac",
			Name:      "pressure_deficit_pa",
			Help:      "Most recently integrated gradient-wind pressure deficit.",
		}),
		CoordinatorState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vortrac",
			Name:      "coordinator_state",
			Help:      "AnalysisCoordinator's current state, as an ordinal.",
		}),
	}
}
