// Package asset holds installed, mutable instances of technologies: their
// capacity, how they dispatch against residual demand and what that costs.
package asset

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/core/technology"
)

// ErrUndefinedLevelizedCost is returned when an asset delivered no energy and
// has no levelized cost override.
var ErrUndefinedLevelizedCost = errors.New("levelized cost undefined for zero energy")

// Asset is an installed technology competing to meet demand.
type Asset interface {
	Name() string
	Kind() model.AssetKind
	Technology() technology.Technology
	Capacity() float64
	SetCapacity(c float64)
	// CappableCapacity is the part of the capacity a capper may displace.
	CappableCapacity() float64
	// MarginalCost orders assets in a short-run merit order.
	MarginalCost() float64
	// Dispatch returns the energy delivered in each hour of residual.
	Dispatch(residual demand.Series) []float64
	AnnualDispatchCost(dispatch []float64) float64
	LevelizedCost(dispatch []float64) (float64, error)
	HourlyDispatchCost(dispatch []float64) ([]float64, error)
	Detail() model.InstallationDetail
}

type base struct {
	name     string
	capacity float64
	// cappable is the displaceable fraction of capacity, 1 by default.
	cappable float64
}

func newBase(name string, capacity float64) base {
	return base{name: name, capacity: capacity, cappable: 1}
}

func (b *base) Name() string                  { return b.name }
func (b *base) Capacity() float64             { return b.capacity }
func (b *base) SetCapacity(c float64)         { b.capacity = c }
func (b *base) CappableCapacity() float64     { return b.cappable * b.capacity }
func (b *base) SetCappableFraction(f float64) { b.cappable = f }

func annualCost(t technology.Technology, capacity, energy float64) float64 {
	return energy*t.TotalVariableCost() + capacity*t.TotalFixedCost()
}

func levelized(annual, energy float64) (float64, error) {
	if energy == 0 {
		return 0, ErrUndefinedLevelizedCost
	}
	return annual / energy, nil
}

func hourly(dispatch []float64, lc float64) []float64 {
	out := make([]float64, len(dispatch))
	floats.ScaleTo(out, lc, dispatch)
	return out
}

func detail(a Asset) model.InstallationDetail {
	return model.InstallationDetail{
		Name:       a.Name(),
		Technology: a.Technology().Props().Name,
		Kind:       a.Kind(),
		KindName:   a.Kind().String(),
		Capacity:   a.Capacity(),
	}
}

// TotalCapacity sums the capacity of assets.
func TotalCapacity[T Asset](assets []T) float64 {
	var total float64
	for _, a := range assets {
		total += a.Capacity()
	}
	return total
}
