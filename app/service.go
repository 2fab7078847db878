// Package app wires configuration, data sources, metrics sinks and the
// dispatch engine into runnable scenarios.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kilianp07/gridmerit/app/plugins"
	"github.com/kilianp07/gridmerit/config"
	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/capacity"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/dispatch"
	dispatchlog "github.com/kilianp07/gridmerit/core/dispatch/logging"
	"github.com/kilianp07/gridmerit/core/events"
	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/core/optimiser"
	"github.com/kilianp07/gridmerit/core/scenario"
	"github.com/kilianp07/gridmerit/infra/datasource"
	"github.com/kilianp07/gridmerit/infra/logger"
	"github.com/kilianp07/gridmerit/infra/metrics"
	"github.com/kilianp07/gridmerit/infra/mqtt"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

// Service holds the long-lived collaborators shared by every scenario built
// from one configuration.
type Service struct {
	Config    *config.Config
	Sink      coremetrics.MetricsSink
	Store     dispatchlog.RunStore
	Publisher *mqtt.PahoPublisher

	bus       *eventbus.Bus
	log       *logger.ZerologLogger
	catalogue *datasource.Catalogue
	demand    demand.Series
	samples   [][]float64
}

// New loads the inputs named by cfg and builds the sinks and run store.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.NewWithOptions(logger.Options{Component: "service", Level: cfg.Logging.Level, Console: cfg.Logging.Console})

	cat, err := datasource.LoadCatalogue(cfg.Scenario.CatalogueFile)
	if err != nil {
		return nil, fmt.Errorf("catalogue: %w", err)
	}
	svc := &Service{Config: cfg, log: logg, catalogue: cat, bus: eventbus.New()}
	if err := svc.loadDemand(); err != nil {
		return nil, err
	}

	sinks := []coremetrics.MetricsSink{}
	if len(cfg.Metrics.Sinks) > 0 {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.Publisher = pub
		sinks = append(sinks, pub)
	}
	switch len(sinks) {
	case 0:
		svc.Sink = coremetrics.NopSink{}
	case 1:
		svc.Sink = sinks[0]
	default:
		svc.Sink = coremetrics.NewMultiSink(sinks...)
	}

	store, err := plugins.NewRunStore(cfg.Logging)
	if err != nil {
		svc.closePublisher()
		return nil, fmt.Errorf("run store: %w", err)
	}
	svc.Store = store
	return svc, nil
}

func (s *Service) loadDemand() error {
	sc := s.Config.Scenario
	if len(sc.DemandSamples) == 0 {
		series, err := datasource.LoadSeries(sc.DemandFile, datasource.SeriesOptions{})
		if err != nil {
			return fmt.Errorf("demand: %w", err)
		}
		s.demand = series
		return nil
	}
	for i, path := range sc.DemandSamples {
		series, err := datasource.LoadSeries(path, datasource.SeriesOptions{})
		if err != nil {
			return fmt.Errorf("demand sample %d: %w", i, err)
		}
		if i == 0 {
			s.demand = series
		}
		s.samples = append(s.samples, series.Values)
	}
	return nil
}

// Start serves /metrics and counts bus events until ctx is done.
func (s *Service) Start(ctx context.Context) {
	metrics.StartEventCollector(ctx, s.bus, s.Sink)
	if addr := s.Config.Metrics.PromAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, s.log.With("metrics")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
}

// Scenario builds a fresh, privately owned scenario. Iteration offsets every
// random seed.
func (s *Service) Scenario(iteration int) (*scenario.Manager, error) {
	sc := s.Config.Scenario
	offset := uint64(iteration)

	d := demand.NewDemand(s.demand.Clone(), sc.Periods)
	var refreshers []demand.Refresher
	if len(s.samples) > 0 {
		curve, err := demand.NewChoiceCurve(s.samples, sc.DemandScale, sc.Seed+offset)
		if err != nil {
			return nil, fmt.Errorf("demand samples: %w", err)
		}
		curve.Noise = sc.DemandNoise
		d.Series = d.Series.WithValues(curve.Data())
		refreshers = append(refreshers, &demand.StochasticDemand{Demand: &d, Curve: curve})
	}

	start := s.demand.Start
	fleet, err := s.catalogue.Build(datasource.BuildOptions{
		Dir:        filepath.Dir(sc.CatalogueFile),
		Hours:      s.demand.Len(),
		SeedOffset: offset,
		Storage:    func() asset.StorageOptimiser { return s.Config.Storage.NewOptimiser(start) },
	})
	if err != nil {
		return nil, fmt.Errorf("build fleet: %w", err)
	}
	refreshers = append(refreshers, fleet.Refreshers...)
	if len(fleet.Constraints) > 0 {
		refreshers = append(refreshers, fleet.Constraints)
	}

	planner, err := optimiser.Registry.Create(sc.Optimiser)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	m := &scenario.Manager{
		Name:       sc.Name,
		Year:       sc.Year,
		Demand:     &d,
		Portfolio:  &optimiser.Portfolio{Technologies: fleet.Candidates, Assets: fleet.Assets, Demand: d},
		Optimiser:  planner,
		Engine:     dispatch.NewEngine(s.log.With("dispatch"), s.Sink, s.bus, s.Store),
		Markets:    fleet.Markets,
		Refreshers: refreshers,
		CapLimit:   sc.CapLimit,
		Options:    sc.Dispatch,
		Logger:     s.log.With("scenario"),
		Bus:        s.bus,
	}
	if r, ok := s.Sink.(coremetrics.DeploymentRecorder); ok {
		m.Recorder = r
	}
	if sc.CapLimit > 0 {
		m.Capper = &capacity.Capper{Assets: capOrder(fleet.Assets, sc.CapPriority)}
	}
	return m, nil
}

// Optimise plans the configured scenario.
func (s *Service) Optimise() (*scenario.Manager, optimiser.DeploymentGroup, error) {
	m, err := s.Scenario(0)
	if err != nil {
		return nil, nil, err
	}
	groups, err := m.Optimise()
	return m, groups, err
}

// Dispatch plans and dispatches the configured scenario once.
func (s *Service) Dispatch(ctx context.Context) (*scenario.Manager, dispatch.Result, *dispatch.Log, error) {
	m, err := s.Scenario(0)
	if err != nil {
		return nil, dispatch.Result{}, nil, err
	}
	res, log, err := m.Run(ctx)
	return m, res, log, err
}

// MonteCarlo runs iterations independent scenarios on workers goroutines.
// Zero values fall back to the configuration.
func (s *Service) MonteCarlo(ctx context.Context, iterations, workers int) (scenario.Report, error) {
	if iterations <= 0 {
		iterations = s.Config.MonteCarlo.Iterations
	}
	if workers <= 0 {
		workers = s.Config.MonteCarlo.Workers
	}
	progress := eventbus.NewTyped[events.IterationCompleted]()
	sub := progress.Subscribe()
	lg := s.log.With("montecarlo")
	done := make(chan struct{})
	go func() {
		defer close(done)
		eventbus.Forward(sub, func(ev events.IterationCompleted) {
			if ev.Err != nil {
				lg.Warnf("iteration %d failed: %v", ev.Iteration, ev.Err)
				return
			}
			lg.Debugw("iteration completed", map[string]any{"iteration": ev.Iteration, "total_cost": ev.TotalCost})
		})
	}()

	mc := scenario.MonteCarlo{
		Iterations: iterations,
		Workers:    workers,
		Build:      s.Scenario,
		Progress:   progress,
		Logger:     lg,
	}
	if r, ok := s.Sink.(coremetrics.IterationRecorder); ok {
		mc.Recorder = r
	}
	start := time.Now()
	rep, err := mc.Run(ctx)
	progress.Close()
	<-done
	s.log.Infof("monte carlo finished in %s", time.Since(start))
	return rep, err
}

// Close releases the run store, the MQTT connection and any closable sink.
func (s *Service) Close() error {
	s.bus.Close()
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	s.closePublisher()
	if c, ok := s.Sink.(interface{ Close() }); ok {
		c.Close()
	}
	return errors.Join(errs...)
}

func (s *Service) closePublisher() {
	if s.Publisher != nil {
		s.Publisher.Disconnect()
	}
}

// capOrder puts the prioritised assets first and keeps the rest in
// catalogue order.
func capOrder(assets []asset.Asset, priority []string) []asset.Asset {
	out := make([]asset.Asset, 0, len(assets))
	used := make(map[string]bool, len(priority))
	for _, name := range priority {
		for _, a := range assets {
			if a.Name() == name && !used[name] {
				out = append(out, a)
				used[name] = true
			}
		}
	}
	for _, a := range assets {
		if !used[a.Name()] {
			out = append(out, a)
		}
	}
	return out
}
