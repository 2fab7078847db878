package optimiser

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/factory"
	"github.com/kilianp07/gridmerit/core/geometry"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/core/technology"
)

func gen(name string, fixed, variable float64) *technology.GeneratorTechnology {
	return &technology.GeneratorTechnology{Properties: technology.Properties{
		Name: name, FixedOM: fixed, VariableOM: variable,
	}}
}

func demandOf(t *testing.T, periods int, values ...float64) demand.Demand {
	t.Helper()
	s, err := demand.NewSeries("demand", "MW", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), values)
	require.NoError(t, err)
	return demand.NewDemand(s, periods)
}

func TestMeritOrderThreeTechnologies(t *testing.T) {
	// Crossings: base/mid at 25/3, base/peak at 5, mid/peak at 10/3.
	base := gen("base", 100, 2)
	mid := gen("mid", 50, 8)
	peak := gen("peak", 10, 20)
	d := demandOf(t, 10, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	dep, err := MeritOrder{}.Optimise([]*technology.GeneratorTechnology{peak, mid, base}, d)
	require.NoError(t, err)
	require.Len(t, dep, 3)
	require.NoError(t, dep.Validate())

	want := []struct {
		name     string
		deployAt float64
		capacity float64
	}{
		{"base", 0, 1},
		{"mid", 1, 5},
		{"peak", 6, 4},
	}
	for i, w := range want {
		assert.Equal(t, w.name, dep[i].Asset.Name())
		assert.Equal(t, i+1, dep[i].Rank)
		assert.InDelta(t, w.deployAt, dep[i].DeployAt, 1e-12)
		assert.InDelta(t, w.capacity, dep[i].Capacity, 1e-12)
		assert.InDelta(t, w.capacity, dep[i].Asset.Capacity(), 1e-12)
	}
	assert.InDelta(t, d.Peak(), dep.TotalCapacity(), 1e-9)

	details := dep.Details()
	assert.Equal(t, 2, details[1].Rank)
	assert.Equal(t, 1.0, details[1].DeployAt)
}

func TestMeritOrderOutOfDomainCrossing(t *testing.T) {
	// A(100, 10) and B(10, 50) cross at 2.25, outside a one-period domain.
	a := gen("a", 100, 10)
	b := gen("b", 10, 50)
	d := demandOf(t, 1, 3, 7, 5)

	dep, err := MeritOrder{}.Optimise([]*technology.GeneratorTechnology{a, b}, d)
	require.NoError(t, err)
	require.Len(t, dep, 1)
	assert.Equal(t, "b", dep[0].Asset.Name())
	assert.Equal(t, 0.0, dep[0].DeployAt)
	assert.Equal(t, 7.0, dep[0].Capacity)
}

func TestMeritOrderTieIsStable(t *testing.T) {
	a := gen("a", 10, 1)
	b := gen("b", 10, 1)
	dep, err := MeritOrder{}.Optimise([]*technology.GeneratorTechnology{a, b}, demandOf(t, 2, 4, 2))
	require.NoError(t, err)
	require.Len(t, dep, 1)
	assert.Equal(t, "a", dep[0].Asset.Name())
	assert.Equal(t, 4.0, dep[0].Capacity)
}

func TestMeritOrderConcurrentCrossings(t *testing.T) {
	// All three curves meet at x=10; below it c is cheapest and b never is.
	a := gen("a", 100, 0)
	b := gen("b", 50, 5)
	c := gen("c", 0, 10)
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}
	d := demandOf(t, 20, values...)
	lines := geometry.Lines{a.AnnualCostCurve(), b.AnnualCostCurve(), c.AnnualCostCurve()}
	segs := lines.LowerEnvelope(0, 20)
	require.Len(t, segs, 2)

	orders := [][]*technology.GeneratorTechnology{{a, b, c}, {b, a, c}, {c, b, a}}
	for _, techs := range orders {
		dep, err := MeritOrder{}.Optimise(techs, d)
		require.NoError(t, err)
		require.Len(t, dep, 2)
		require.NoError(t, dep.Validate())
		assert.Equal(t, "a", dep[0].Asset.Name())
		assert.Equal(t, "c", dep[1].Asset.Name())
		for i, seg := range segs {
			assert.Equal(t, []string{"a", "b", "c"}[seg.Index], dep[len(dep)-1-i].Asset.Name())
		}
		assert.InDelta(t, d.Peak(), dep.TotalCapacity(), 1e-9)
	}
}

func TestMeritOrderNoTechnologies(t *testing.T) {
	_, err := MeritOrder{}.Optimise(nil, demandOf(t, 1, 1))
	assert.True(t, errors.Is(err, ErrNoTechnologies))
}

// Random portfolios must give contiguous ranks, no repeated technology and
// capacities summing to peak; the winners must match the lower envelope.
func TestMeritOrderRankCompleteness(t *testing.T) {
	r := rand.New(rand.NewPCG(11, 12))
	values := make([]float64, 100)
	for i := range values {
		values[i] = 50 + r.Float64()*100
	}
	d := demandOf(t, len(values), values...)

	for trial := 0; trial < 200; trial++ {
		n := 2 + r.IntN(5)
		techs := make([]*technology.GeneratorTechnology, n)
		lines := make(geometry.Lines, n)
		for i := range techs {
			techs[i] = gen(string(rune('a'+i)), r.Float64()*1000, r.Float64()*20)
			lines[i] = techs[i].AnnualCostCurve()
		}
		dep, err := MeritOrder{}.Optimise(techs, d)
		require.NoError(t, err)
		require.LessOrEqual(t, len(dep), n)
		require.NoError(t, dep.Validate())
		seen := map[string]bool{}
		for _, rk := range dep {
			require.False(t, seen[rk.Asset.Name()])
			seen[rk.Asset.Name()] = true
		}
		assert.InDelta(t, d.Peak(), dep.TotalCapacity(), 1e-6)

		segs := lines.LowerEnvelope(0, float64(d.Periods))
		require.Len(t, dep, len(segs))
		for i, seg := range segs {
			// envelope segments run from short to long durations, ranks
			// from long to short
			assert.Equal(t, techs[seg.Index].Name, dep[len(dep)-1-i].Asset.Name())
		}
	}
}

func storageAsset(name string, variable float64) asset.Asset {
	tech := &technology.StorageTechnology{Properties: technology.Properties{Name: name, VariableOM: variable}, RoundTripEfficiency: 1}
	return asset.NewStorage(name, tech, 1, 1, nil)
}

func passiveAsset(name string, variable float64, lc *float64) asset.Asset {
	tech := &technology.PassiveTechnology{Properties: technology.Properties{Name: name, VariableOM: variable}, LevelizedCost: lc}
	return asset.NewPassiveGenerator(name, tech, 1, demand.StaticResource{1})
}

func TestSRMCRank(t *testing.T) {
	assets := []asset.Asset{
		asset.NewGenerator("coal", gen("coal", 0, 30), 5),
		asset.NewGenerator("gas", gen("gas", 0, 50), 3),
		asset.NewGenerator("nuclear", gen("nuclear", 0, 10), 4),
		asset.NewGenerator("lignite", gen("lignite", 0, 30), 2),
	}
	dep := SRMC{}.Rank(assets)
	var names []string
	for i, r := range dep {
		names = append(names, r.Asset.Name())
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, r.Asset.Capacity(), r.Capacity)
	}
	assert.Equal(t, []string{"nuclear", "coal", "lignite", "gas"}, names)
	assert.Equal(t, "coal", assets[0].Name(), "input order must be untouched")
}

func TestSRMCOptimiseGroups(t *testing.T) {
	zero := 0.0
	assets := []asset.Asset{
		asset.NewGenerator("gas", gen("gas", 0, 50), 3),
		storageAsset("bess", 2),
		passiveAsset("wind", 5, nil),
		passiveAsset("solar", 9, &zero),
	}
	groups := SRMC{}.Optimise(assets)
	require.Len(t, groups, 3)
	assert.Equal(t, "passive", groups[0].Name)
	assert.Equal(t, "solar", groups[0].Deployment[0].Asset.Name())
	assert.Equal(t, "storage", groups[1].Name)
	assert.Equal(t, "generator", groups[2].Name)

	var names []string
	for _, a := range groups.Assets() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"solar", "wind", "bess", "gas"}, names)

	a, ok := groups.Find("bess")
	require.True(t, ok)
	assert.Equal(t, model.KindStorage, a.Kind())
	_, ok = groups.Find("hydro")
	assert.False(t, ok)

	custom := SRMC{GroupOrder: []model.AssetKind{model.KindGenerator}}.Optimise(assets)
	require.Len(t, custom, 1)
	assert.Equal(t, "gas", custom[0].Deployment[0].Asset.Name())
}

func TestMeritOrderPlanNameCollision(t *testing.T) {
	d := demandOf(t, 2, 4, 2)
	p := Portfolio{
		Technologies: []*technology.GeneratorTechnology{gen("gas", 10, 1)},
		Assets:       []asset.Asset{storageAsset("gas", 2)},
		Demand:       d,
	}
	_, err := MeritOrder{}.Plan(p)
	assert.True(t, errors.Is(err, ErrDuplicateName))

	p.Assets = []asset.Asset{storageAsset("bess", 2)}
	groups, err := MeritOrder{}.Plan(p)
	require.NoError(t, err)
	assert.Len(t, groups.Assets(), 2)
}

func TestRegistryPlanners(t *testing.T) {
	assert.Equal(t, []string{"merit_order", "srmc"}, Registry.Names())

	p, err := Registry.Create(factory.ModuleConfig{Type: "srmc", Conf: map[string]any{
		"group_order": []string{"generator", "passive"},
	}})
	require.NoError(t, err)
	groups, err := p.Plan(Portfolio{Assets: []asset.Asset{
		passiveAsset("wind", 5, nil),
		asset.NewGenerator("gas", gen("gas", 0, 50), 3),
	}})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "generator", groups[0].Name)

	_, err = Registry.Create(factory.ModuleConfig{Type: "srmc", Conf: map[string]any{"group_order": []string{"fusion"}}})
	assert.Error(t, err)

	mo, err := Registry.Create(factory.ModuleConfig{Type: "merit_order"})
	require.NoError(t, err)
	groups, err = mo.Plan(Portfolio{
		Technologies: []*technology.GeneratorTechnology{gen("base", 100, 2), gen("peak", 10, 20)},
		Assets:       []asset.Asset{storageAsset("bess", 1)},
		Demand:       demandOf(t, 10, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "storage", groups[0].Name)
	assert.Equal(t, "generator", groups[1].Name)
	assert.Len(t, groups[1].Deployment, 2)

	_, err = SRMC{}.Plan(Portfolio{})
	assert.True(t, errors.Is(err, ErrNoTechnologies))
}
