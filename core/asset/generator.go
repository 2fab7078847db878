package asset

import (
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/core/technology"
)

// Generator is a capacity-limited dispatchable unit.
type Generator struct {
	base
	Tech *technology.GeneratorTechnology
}

// NewGenerator installs capacity of tech under name.
func NewGenerator(name string, tech *technology.GeneratorTechnology, capacity float64) *Generator {
	return &Generator{base: newBase(name, capacity), Tech: tech}
}

func (g *Generator) Kind() model.AssetKind             { return model.KindGenerator }
func (g *Generator) Technology() technology.Technology { return g.Tech }
func (g *Generator) MarginalCost() float64             { return g.Tech.TotalVariableCost() }
func (g *Generator) Detail() model.InstallationDetail  { return detail(g) }

// Dispatch clips the residual to [0, capacity].
func (g *Generator) Dispatch(residual demand.Series) []float64 {
	out := make([]float64, residual.Len())
	for i, v := range residual.Values {
		out[i] = clip(v, 0, g.capacity)
	}
	return out
}

// AnnualDispatchCost is energy times variable cost plus capacity times fixed
// cost.
func (g *Generator) AnnualDispatchCost(dispatch []float64) float64 {
	return annualCost(g.Tech, g.capacity, floats.Sum(dispatch))
}

// LevelizedCost is the annual cost per unit of energy dispatched.
func (g *Generator) LevelizedCost(dispatch []float64) (float64, error) {
	return levelized(g.AnnualDispatchCost(dispatch), floats.Sum(dispatch))
}

// HourlyDispatchCost prices each hour at the levelized cost.
func (g *Generator) HourlyDispatchCost(dispatch []float64) ([]float64, error) {
	lc, err := g.LevelizedCost(dispatch)
	if err != nil {
		return nil, err
	}
	return hourly(dispatch, lc), nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
