package scenario

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/gridmerit/core/events"
	"github.com/kilianp07/gridmerit/core/logger"
	"github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

// BuildFunc builds the private scenario of one iteration.
type BuildFunc func(iteration int) (*Manager, error)

// MonteCarlo runs independent scenario iterations on a bounded pool.
type MonteCarlo struct {
	Iterations int
	// Workers bounds concurrent iterations; values below 1 mean one.
	Workers  int
	Build    BuildFunc
	Progress *eventbus.TypedBus[events.IterationCompleted]
	Recorder metrics.IterationRecorder
	Logger   logger.Logger
}

// Outcome is the result of one iteration.
type Outcome struct {
	Iteration int
	RunID     string
	TotalCost float64
	Unserved  float64
}

// Report aggregates the iterations in order.
type Report struct {
	Outcomes []Outcome
	MeanCost float64
	StdCost  float64
}

// Run executes every iteration and stops at the first failure.
func (mc MonteCarlo) Run(ctx context.Context) (Report, error) {
	if mc.Build == nil {
		return Report{}, errors.New("monte carlo needs a build function")
	}
	workers := mc.Workers
	if workers < 1 {
		workers = 1
	}
	lg := logger.OrNop(mc.Logger)
	outcomes := make([]Outcome, mc.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < mc.Iterations; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := mc.iterate(gctx, i)
			if mc.Progress != nil {
				mc.Progress.Publish(events.IterationCompleted{Iteration: i, TotalCost: out.TotalCost, Err: err})
			}
			if err != nil {
				return fmt.Errorf("iteration %d: %w", i, err)
			}
			outcomes[i] = out
			if mc.Recorder != nil {
				if rerr := mc.Recorder.RecordIteration(i, out.TotalCost); rerr != nil {
					lg.Errorf("metrics error: %v", rerr)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	costs := make([]float64, len(outcomes))
	for i, o := range outcomes {
		costs[i] = o.TotalCost
	}
	rep := Report{Outcomes: outcomes}
	switch {
	case len(costs) > 1:
		rep.MeanCost, rep.StdCost = stat.MeanStdDev(costs, nil)
	case len(costs) == 1:
		rep.MeanCost = costs[0]
	}
	lg.Infow("monte carlo completed", map[string]any{"iterations": mc.Iterations, "mean_cost": rep.MeanCost})
	return rep, nil
}

func (mc MonteCarlo) iterate(ctx context.Context, i int) (Outcome, error) {
	m, err := mc.Build(i)
	if err != nil {
		return Outcome{Iteration: i}, err
	}
	res, _, err := m.Run(ctx)
	if err != nil {
		return Outcome{Iteration: i}, err
	}
	return Outcome{Iteration: i, RunID: res.RunID, TotalCost: res.Summary.TotalCost, Unserved: res.Summary.UnservedEnergy}, nil
}
