// Package dispatch runs ranked deployments against a demand series, hour by
// hour, and records what every asset delivered and what it cost.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/dispatch/logging"
	"github.com/kilianp07/gridmerit/core/events"
	"github.com/kilianp07/gridmerit/core/logger"
	"github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/core/optimiser"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

// Options selects which costs a run computes.
type Options struct {
	AnnualCosts    bool `json:"annual_costs" yaml:"annual_costs" koanf:"annual_costs"`
	LevelizedCosts bool `json:"levelized_costs" yaml:"levelized_costs" koanf:"levelized_costs"`
	HourlyCosts    bool `json:"hourly_costs" yaml:"hourly_costs" koanf:"hourly_costs"`
	// Economic dispatches all-generator groups jointly with the LP dispatcher
	// instead of one generator after the other.
	Economic bool   `json:"economic" yaml:"economic" koanf:"economic"`
	Scenario string `json:"scenario" yaml:"scenario" koanf:"scenario"`
}

// Result identifies a run and summarises it.
type Result struct {
	RunID   string
	Summary metrics.DispatchSummary
}

// Engine dispatches deployments. Every collaborator is optional.
type Engine struct {
	Logger  logger.Logger
	Metrics metrics.MetricsSink
	Bus     eventbus.EventBus
	Store   logging.RunStore
	LP      *LPDispatcher
	Now     func() time.Time
}

// NewEngine returns an engine with a no-op sink and an LP dispatcher.
func NewEngine(l logger.Logger, sink metrics.MetricsSink, bus eventbus.EventBus, store logging.RunStore) *Engine {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	l = logger.OrNop(l)
	return &Engine{Logger: l, Metrics: sink, Bus: bus, Store: store, LP: NewLPDispatcher(l), Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Dispatch runs a single deployment in rank order.
func (e *Engine) Dispatch(ctx context.Context, dep optimiser.Deployment, log *Log, opts Options) (Result, error) {
	return e.DispatchGroup(ctx, optimiser.DeploymentGroup{{Deployment: dep}}, log, opts)
}

// DispatchGroup runs every group in order against the residual left by the
// previous ones.
func (e *Engine) DispatchGroup(ctx context.Context, groups optimiser.DeploymentGroup, log *Log, opts Options) (Result, error) {
	lg := logger.OrNop(e.Logger)
	runID := uuid.NewString()
	start := e.now()
	lg.Debugw("dispatch started", map[string]any{"run_id": runID, "assets": len(groups.Assets()), "periods": log.Demand.Len()})

	err := e.run(ctx, runID, groups, log, opts)
	elapsed := e.now().Sub(start)
	runDuration.Observe(elapsed.Seconds())

	res := Result{RunID: runID, Summary: Summarise(runID, opts.Scenario, start, groups, log)}
	status := "ok"
	if err != nil {
		status = "error"
		lg.Errorf("dispatch %s: %v", runID, err)
	} else {
		unservedEnergy.Set(res.Summary.UnservedEnergy)
		if e.Metrics != nil {
			if merr := e.Metrics.RecordDispatchSummary(res.Summary); merr != nil {
				lg.Errorf("metrics error: %v", merr)
			}
		}
	}
	dispatchRuns.WithLabelValues(status).Inc()
	e.persist(ctx, res.Summary, log, err)
	if e.Bus != nil {
		e.Bus.Publish(events.DispatchCompleted{
			RunID:          runID,
			Assets:         len(log.Order),
			UnservedEnergy: res.Summary.UnservedEnergy,
			TotalCost:      res.Summary.TotalCost,
			Duration:       elapsed,
			Err:            err,
		})
	}
	lg.Infow("dispatch completed", map[string]any{
		"run_id":   runID,
		"unserved": res.Summary.UnservedEnergy,
		"cost":     res.Summary.TotalCost,
		"duration": elapsed.String(),
	})
	return res, err
}

func (e *Engine) run(ctx context.Context, runID string, groups optimiser.DeploymentGroup, log *Log, opts Options) error {
	if err := uniqueNames(groups, log); err != nil {
		return err
	}
	for _, grp := range groups {
		if opts.Economic && e.LP != nil {
			if gens, ok := generators(grp.Deployment); ok && len(gens) > 1 {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("group %q: %w", grp.Name, err)
				}
				cols := e.LP.DispatchGenerators(gens, log.ResidualSeries())
				for i, r := range grp.Deployment {
					if err := e.record(runID, grp.Name, r, cols[i], log, opts); err != nil {
						return err
					}
				}
				continue
			}
		}
		for _, r := range grp.Deployment {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("before %s: %w", r.Asset.Name(), err)
			}
			d := r.Asset.Dispatch(log.ResidualSeries())
			if err := e.record(runID, grp.Name, r, d, log, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

// uniqueNames rejects a run whose assets would share a log column, before
// anything is dispatched.
func uniqueNames(groups optimiser.DeploymentGroup, log *Log) error {
	seen := make(map[string]bool, len(log.Dispatch))
	for name := range log.Dispatch {
		seen[name] = true
	}
	for _, a := range groups.Assets() {
		if seen[a.Name()] {
			return fmt.Errorf("%s: %w", a.Name(), ErrDuplicateAsset)
		}
		seen[a.Name()] = true
	}
	return nil
}

// record logs the dispatch column of one asset and the costs opts asks for.
func (e *Engine) record(runID, group string, r optimiser.Ranked, d []float64, log *Log, opts Options) error {
	a := r.Asset
	name := a.Name()
	if err := log.Record(name, d); err != nil {
		return err
	}
	assetsDispatched.WithLabelValues(a.Kind().String()).Inc()

	if opts.AnnualCosts {
		log.AnnualCost[name] = a.AnnualDispatchCost(d)
	}
	if opts.LevelizedCosts || opts.HourlyCosts {
		lc, err := a.LevelizedCost(d)
		switch {
		case errors.Is(err, asset.ErrUndefinedLevelizedCost):
			log.UndefinedLevelized = append(log.UndefinedLevelized, name)
			logger.OrNop(e.Logger).Debugf("%s: %v", name, err)
		case err != nil:
			logger.OrNop(e.Logger).Warnf("%s: levelized cost: %v", name, err)
		default:
			if opts.LevelizedCosts {
				log.LevelizedCost[name] = lc
			}
			if opts.HourlyCosts {
				if h, herr := a.HourlyDispatchCost(d); herr == nil {
					log.HourlyCost[name] = h
				}
			}
		}
	}

	if e.Bus != nil {
		e.Bus.Publish(events.AssetDispatched{RunID: runID, Group: group, Asset: name, Rank: r.Rank, Energy: energy(a, d)})
	}
	return nil
}

func (e *Engine) persist(ctx context.Context, s metrics.DispatchSummary, log *Log, runErr error) {
	if e.Store == nil {
		return
	}
	rec := logging.RunRecord{
		RunID:        s.RunID,
		Timestamp:    s.Time,
		Scenario:     s.Scenario,
		Order:        append([]string(nil), log.Order...),
		Energy:       make(map[string]float64, len(s.Assets)),
		AnnualCost:   make(map[string]float64, len(s.Assets)),
		TotalCost:    s.TotalCost,
		Unserved:     s.UnservedEnergy,
		PeakResidual: s.PeakResidual,
	}
	for _, a := range s.Assets {
		rec.Energy[a.Asset] = a.Energy
		rec.AnnualCost[a.Asset] = a.AnnualCost
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	// the run has ended; store even if its context was cancelled
	if err := e.Store.Append(context.WithoutCancel(ctx), rec); err != nil {
		logger.OrNop(e.Logger).Errorf("store run %s: %v", s.RunID, err)
	}
}

// generators returns the deployment as generators when every asset is one.
func generators(dep optimiser.Deployment) ([]*asset.Generator, bool) {
	out := make([]*asset.Generator, 0, len(dep))
	for _, r := range dep {
		g, ok := r.Asset.(*asset.Generator)
		if !ok {
			return nil, false
		}
		out = append(out, g)
	}
	return out, true
}

// energy is what an asset delivered to the grid. Storage charging is not
// delivery.
func energy(a asset.Asset, d []float64) float64 {
	if _, ok := a.(*asset.Storage); ok {
		return asset.Delivered(d)
	}
	return floats.Sum(d)
}
