package scenario

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/capacity"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/events"
	"github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/core/optimiser"
	"github.com/kilianp07/gridmerit/core/technology"
	"github.com/kilianp07/gridmerit/internal/eventbus"
)

var t0 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func flatDemand(t *testing.T, values ...float64) *demand.Demand {
	t.Helper()
	s, err := demand.NewSeries("demand", "MW", t0, values)
	require.NoError(t, err)
	d := demand.NewDemand(s, len(values))
	return &d
}

func gen(name string, variable, capacity float64) *asset.Generator {
	return asset.NewGenerator(name, &technology.GeneratorTechnology{Properties: technology.Properties{Name: name, VariableOM: variable}}, capacity)
}

func fleetNames(g optimiser.DeploymentGroup) []string {
	var out []string
	for _, a := range g.Assets() {
		out = append(out, a.Name())
	}
	return out
}

func TestManager_UpdateCapacities(t *testing.T) {
	a, b := gen("a", 1, 5), gen("b", 2, 5)
	m := &Manager{Demand: flatDemand(t, 1), Portfolio: &optimiser.Portfolio{Assets: []asset.Asset{a, b}}}

	require.NoError(t, m.UpdateCapacities(map[string]float64{"a": 7}))
	assert.Equal(t, 7.0, a.Capacity())

	err := m.UpdateCapacities(map[string]float64{"b": 1, "ghost": 3})
	assert.True(t, errors.Is(err, ErrUnknownAsset))
	assert.Equal(t, 5.0, b.Capacity())
	assert.Error(t, m.UpdateCapacities(map[string]float64{"b": -1}))

	twin := gen("a", 3, 5)
	m.Portfolio.Assets = append(m.Portfolio.Assets, twin)
	assert.Error(t, m.UpdateCapacities(map[string]float64{"a": 1}))
	assert.Equal(t, 7.0, a.Capacity())
	assert.Equal(t, 5.0, twin.Capacity())
}

func TestManager_RefreshMarketsReoptimises(t *testing.T) {
	gas := &technology.Fuel{Commodity: technology.Commodity{Name: "gas", Price: 10}}
	ccgt := asset.NewGenerator("ccgt", &technology.GeneratorTechnology{
		Properties:        technology.Properties{Name: "ccgt"},
		ThermalEfficiency: 0.5,
		Fuel:              gas,
	}, 5)
	coal := gen("coal", 60, 5)
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()

	m := &Manager{
		Demand:    flatDemand(t, 3),
		Portfolio: &optimiser.Portfolio{Assets: []asset.Asset{coal, ccgt}},
		Optimiser: optimiser.SRMC{},
		Markets:   technology.Markets{&technology.StaticPrice{Price: 50, Commodities: []*technology.Commodity{&gas.Commodity}}},
		Bus:       bus,
	}
	_, err := m.Optimise()
	require.NoError(t, err)
	assert.Equal(t, []string{"ccgt", "coal"}, fleetNames(m.Groups()))
	ev := <-sub
	assert.Equal(t, events.DeploymentRanked{Planner: "optimiser.SRMC", Groups: 1, Assets: 2}, ev)

	require.NoError(t, m.RefreshMarkets(false))
	assert.Equal(t, 50.0, gas.Price)
	assert.Equal(t, []string{"ccgt", "coal"}, fleetNames(m.Groups()))

	require.NoError(t, m.RefreshMarkets(true))
	assert.Equal(t, []string{"coal", "ccgt"}, fleetNames(m.Groups()))
}

func TestManager_Run(t *testing.T) {
	d := flatDemand(t, 0, 0)
	curve, err := demand.NewChoiceCurve([][]float64{{4, 9}}, 1, 1)
	require.NoError(t, err)
	cheap, dear := gen("cheap", 1, 5), gen("dear", 10, 5)
	capper := &capacity.Capper{Assets: []asset.Asset{dear, cheap}}

	m := &Manager{
		Year:       2023,
		Demand:     d,
		Portfolio:  &optimiser.Portfolio{Assets: []asset.Asset{dear, cheap}},
		Optimiser:  optimiser.SRMC{},
		Refreshers: []demand.Refresher{&demand.StochasticDemand{Demand: d, Curve: curve}},
		Capper:     capper,
		CapLimit:   8,
	}
	res, log, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 9}, log.Demand.Values)
	assert.Equal(t, 3.0, dear.Capacity())
	assert.Equal(t, []string{"cheap", "dear"}, log.Order)
	assert.Equal(t, []float64{0, 3}, log.Dispatch["dear"])
	assert.Equal(t, 1.0, res.Summary.UnservedEnergy)
	assert.Equal(t, "2023", res.Summary.Scenario)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = m.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestManager_NoOptimiser(t *testing.T) {
	m := &Manager{Demand: flatDemand(t, 1)}
	_, err := m.Optimise()
	assert.Error(t, err)
}

type deploymentRecorder struct{ recs []metrics.DeploymentRecord }

func (r *deploymentRecorder) RecordDeployment(recs []metrics.DeploymentRecord) error {
	r.recs = recs
	return nil
}

func TestManager_OptimiseRecordsDeployment(t *testing.T) {
	rec := &deploymentRecorder{}
	m := &Manager{
		Name:      "base",
		Demand:    flatDemand(t, 3),
		Portfolio: &optimiser.Portfolio{Assets: []asset.Asset{gen("dear", 9, 2), gen("cheap", 1, 4)}},
		Optimiser: optimiser.SRMC{},
		Recorder:  rec,
		Now:       func() time.Time { return t0 },
	}
	_, err := m.Optimise()
	require.NoError(t, err)
	require.Len(t, rec.recs, 2)
	assert.Equal(t, metrics.DeploymentRecord{RunID: "base", Group: "generator", Asset: "cheap", Rank: 1, Capacity: 4, Time: t0}, rec.recs[0])
	assert.Equal(t, 2, rec.recs[1].Rank)
}

type iterationRecorder struct {
	mu    sync.Mutex
	costs map[int]float64
}

func (r *iterationRecorder) RecordIteration(i int, cost float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.costs[i] = cost
	return nil
}

func TestMonteCarlo_Run(t *testing.T) {
	progress := eventbus.NewTyped[events.IterationCompleted]()
	defer progress.Close()
	sub := progress.Subscribe()
	rec := &iterationRecorder{costs: map[int]float64{}}

	mc := MonteCarlo{
		Iterations: 4,
		Workers:    2,
		Recorder:   rec,
		Progress:   progress,
		Build: func(i int) (*Manager, error) {
			v := float64(i + 1)
			return &Manager{
				Demand:    flatDemand(t, v, v),
				Portfolio: &optimiser.Portfolio{Assets: []asset.Asset{gen("g", 1, 10)}},
				Optimiser: optimiser.SRMC{},
			}, nil
		},
	}
	rep, err := mc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 4)
	for i, o := range rep.Outcomes {
		assert.Equal(t, i, o.Iteration)
		assert.Equal(t, 2*float64(i+1), o.TotalCost)
		assert.NotEmpty(t, o.RunID)
	}
	assert.InDelta(t, 5.0, rep.MeanCost, 1e-12)
	assert.Greater(t, rep.StdCost, 0.0)
	assert.Len(t, rec.costs, 4)

	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		ev := <-sub
		assert.NoError(t, ev.Err)
		seen[ev.Iteration] = true
	}
	assert.Len(t, seen, 4)
}

func TestMonteCarlo_BuildError(t *testing.T) {
	boom := errors.New("boom")
	mc := MonteCarlo{
		Iterations: 3,
		Workers:    1,
		Build: func(i int) (*Manager, error) {
			if i == 1 {
				return nil, boom
			}
			return &Manager{
				Demand:    flatDemand(t, 1),
				Portfolio: &optimiser.Portfolio{Assets: []asset.Asset{gen("g", 1, 10)}},
				Optimiser: optimiser.SRMC{},
			}, nil
		},
	}
	_, err := mc.Run(context.Background())
	assert.True(t, errors.Is(err, boom))

	_, err = MonteCarlo{Iterations: 1}.Run(context.Background())
	assert.Error(t, err)
}
