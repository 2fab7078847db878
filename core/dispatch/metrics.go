package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runDuration      prometheus.Histogram
	assetsDispatched *prometheus.CounterVec
	unservedEnergy   prometheus.Gauge
	lpFallback       prometheus.Counter
	dispatchRuns     *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, *prometheus.CounterVec, prometheus.Gauge, prometheus.Counter, *prometheus.CounterVec) {
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "grid_dispatch_run_duration_seconds",
			Help:    "Duration of a dispatch run over a full demand series",
			Buckets: prometheus.DefBuckets,
		},
	)
	assets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_assets_dispatched_total",
			Help: "Number of assets dispatched",
		},
		[]string{"kind"},
	)
	unserved := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "grid_unserved_energy",
			Help: "Energy left unserved by the last dispatch run",
		},
	)
	fallback := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grid_lp_fallback_total",
			Help: "Number of hours dispatched by merit-order clipping after an LP failure",
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grid_dispatch_runs_total",
			Help: "Number of dispatch runs by outcome",
		},
		[]string{"status"},
	)
	return dur, assets, unserved, fallback, runs
}

func init() {
	runDuration, assetsDispatched, unservedEnergy, lpFallback, dispatchRuns = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(runDuration, assetsDispatched, unservedEnergy, lpFallback, dispatchRuns)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	runDuration, assetsDispatched, unservedEnergy, lpFallback, dispatchRuns = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
