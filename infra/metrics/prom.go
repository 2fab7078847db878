package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
)

// PromSink exposes dispatch summaries, deployments and Monte-Carlo
// iterations as Prometheus metrics.
type PromSink struct {
	systemCost     *prometheus.GaugeVec
	unserved       *prometheus.GaugeVec
	assetEnergy    *prometheus.GaugeVec
	capacityFactor *prometheus.GaugeVec
	deployment     *prometheus.GaugeVec
	iterationCost  prometheus.Histogram
	events         *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The HTTP server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		systemCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grid_system_cost",
			Help: "Annual system cost of the last dispatch run",
		}, []string{"scenario"}),
		unserved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grid_run_unserved_energy",
			Help: "Unserved energy of the last dispatch run",
		}, []string{"scenario"}),
		assetEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grid_asset_energy",
			Help: "Energy delivered by an asset in the last dispatch run",
		}, []string{"asset", "kind"}),
		capacityFactor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grid_asset_capacity_factor",
			Help: "Capacity factor of an asset in the last dispatch run",
		}, []string{"asset"}),
		deployment: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grid_deployment_capacity",
			Help: "Capacity assigned to a ranked asset",
		}, []string{"group", "asset", "rank"}),
		iterationCost: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grid_montecarlo_iteration_cost",
			Help:    "System cost of Monte-Carlo iterations",
			Buckets: prometheus.ExponentialBuckets(1e3, 2, 20),
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grid_events_total",
			Help: "Events seen on the dispatch bus",
		}, []string{"event"}),
	}
	var err error
	if s.systemCost, err = register(reg, s.systemCost); err != nil {
		return nil, err
	}
	if s.unserved, err = register(reg, s.unserved); err != nil {
		return nil, err
	}
	if s.assetEnergy, err = register(reg, s.assetEnergy); err != nil {
		return nil, err
	}
	if s.capacityFactor, err = register(reg, s.capacityFactor); err != nil {
		return nil, err
	}
	if s.deployment, err = register(reg, s.deployment); err != nil {
		return nil, err
	}
	if s.iterationCost, err = register(reg, s.iterationCost); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, s.events); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDispatchSummary sets the run and per-asset gauges.
func (s *PromSink) RecordDispatchSummary(sum coremetrics.DispatchSummary) error {
	s.systemCost.WithLabelValues(sum.Scenario).Set(sum.TotalCost)
	s.unserved.WithLabelValues(sum.Scenario).Set(sum.UnservedEnergy)
	for _, a := range sum.Assets {
		s.assetEnergy.WithLabelValues(a.Asset, a.Kind).Set(a.Energy)
		s.capacityFactor.WithLabelValues(a.Asset).Set(a.CapacityFactor)
	}
	return nil
}

// RecordDeployment sets the assigned capacity of every rank.
func (s *PromSink) RecordDeployment(recs []coremetrics.DeploymentRecord) error {
	for _, r := range recs {
		s.deployment.WithLabelValues(r.Group, r.Asset, strconv.Itoa(r.Rank)).Set(r.Capacity)
	}
	return nil
}

// RecordIteration observes the system cost of an iteration.
func (s *PromSink) RecordIteration(_ int, totalCost float64) error {
	s.iterationCost.Observe(totalCost)
	return nil
}

// RecordEvent counts a bus event.
func (s *PromSink) RecordEvent(name string) error {
	s.events.WithLabelValues(name).Inc()
	return nil
}
