package asset

import (
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/core/technology"
)

// PassiveGenerator follows an external resource profile such as wind or
// solar output.
type PassiveGenerator struct {
	base
	Tech     *technology.PassiveTechnology
	Resource demand.Resource
	// AsFactor marks Resource as a per-unit profile scaled by capacity.
	AsFactor bool
	// Constraint optionally limits output hour by hour. Nil means none.
	Constraint demand.Resource
}

// NewPassiveGenerator installs capacity of tech following resource.
func NewPassiveGenerator(name string, tech *technology.PassiveTechnology, capacity float64, resource demand.Resource) *PassiveGenerator {
	return &PassiveGenerator{base: newBase(name, capacity), Tech: tech, Resource: resource}
}

func (p *PassiveGenerator) Kind() model.AssetKind             { return model.KindPassive }
func (p *PassiveGenerator) Technology() technology.Technology { return p.Tech }
func (p *PassiveGenerator) Detail() model.InstallationDetail  { return detail(p) }

// MarginalCost is the levelized cost override when set, else variable O&M.
func (p *PassiveGenerator) MarginalCost() float64 {
	if p.Tech.LevelizedCost != nil {
		return *p.Tech.LevelizedCost
	}
	return p.Tech.TotalVariableCost()
}

// Available is the resource profile after scaling and constraint clipping.
func (p *PassiveGenerator) Available(n int) []float64 {
	data := p.Resource.Data()
	var limit []float64
	if p.Constraint != nil {
		limit = p.Constraint.Data()
	}
	out := make([]float64, n)
	for i := 0; i < n && i < len(data); i++ {
		v := data[i]
		if p.AsFactor {
			v *= p.capacity
		}
		if limit != nil && i < len(limit) && v > limit[i] {
			v = limit[i]
		}
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// Dispatch clips the residual to [0, available resource].
func (p *PassiveGenerator) Dispatch(residual demand.Series) []float64 {
	avail := p.Available(residual.Len())
	out := make([]float64, residual.Len())
	for i, v := range residual.Values {
		out[i] = clip(v, 0, avail[i])
	}
	return out
}

// AnnualDispatchCost is energy times variable cost plus capacity times fixed
// cost.
func (p *PassiveGenerator) AnnualDispatchCost(dispatch []float64) float64 {
	return annualCost(p.Tech, p.capacity, floats.Sum(dispatch))
}

// LevelizedCost returns the technology override when present, otherwise the
// annual cost per unit of energy dispatched.
func (p *PassiveGenerator) LevelizedCost(dispatch []float64) (float64, error) {
	if p.Tech.LevelizedCost != nil {
		return *p.Tech.LevelizedCost, nil
	}
	return levelized(p.AnnualDispatchCost(dispatch), floats.Sum(dispatch))
}

// HourlyDispatchCost prices each hour at the levelized cost.
func (p *PassiveGenerator) HourlyDispatchCost(dispatch []float64) ([]float64, error) {
	lc, err := p.LevelizedCost(dispatch)
	if err != nil {
		return nil, err
	}
	return hourly(dispatch, lc), nil
}
