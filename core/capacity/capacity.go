// Package capacity displaces installed capacity when a portfolio exceeds a
// limit, and models stochastic limits on how much of an asset can run.
package capacity

import (
	"math"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/demand"
)

// Capper reduces capacity in priority order.
type Capper struct {
	// Assets are capped first to last.
	Assets []asset.Asset
}

// Cap displaces exceedance from the assets in a single ordered pass. Each
// asset gives up at most its cappable capacity. It returns the amount that
// could not be displaced.
func (c Capper) Cap(exceedance float64) float64 {
	remaining := exceedance
	for _, a := range c.Assets {
		if remaining <= 0 {
			break
		}
		cut := math.Min(a.CappableCapacity(), remaining)
		if cut <= 0 {
			continue
		}
		a.SetCapacity(a.Capacity() - cut)
		remaining -= cut
	}
	return math.Max(remaining, 0)
}

// Exceedance is how far the total capacity of assets is above limit, or 0.
func Exceedance(assets []asset.Asset, limit float64) float64 {
	return math.Max(asset.TotalCapacity(assets)-limit, 0)
}

// Constraint limits an asset hour by hour. It can be set as a passive
// generator constraint.
type Constraint struct {
	Model demand.Resource
	// AsFactor reads Model as a fraction of the capacity of Of.
	AsFactor bool
	Of       asset.Asset
}

// Data returns the current limit profile.
func (c *Constraint) Data() []float64 {
	data := c.Model.Data()
	if !c.AsFactor || c.Of == nil {
		return data
	}
	out := make([]float64, len(data))
	capacity := c.Of.Capacity()
	for i, v := range data {
		out[i] = v * capacity
	}
	return out
}

// Refresh redraws the model when it is stochastic.
func (c *Constraint) Refresh() {
	if r, ok := c.Model.(demand.Refresher); ok {
		r.Refresh()
	}
}

// Constraints refreshes as a unit.
type Constraints []*Constraint

func (cs Constraints) Refresh() {
	for _, c := range cs {
		c.Refresh()
	}
}
