package technology

import (
	"fmt"

	"github.com/kilianp07/gridmerit/core/geometry"
)

// GeneratorTechnology is a dispatchable thermal or firm generator template.
type GeneratorTechnology struct {
	Properties
	ThermalEfficiency float64
	Fuel              *Fuel
	Emissions         *EmissionsCharacteristics
}

// Props returns the shared cost properties.
func (g *GeneratorTechnology) Props() Properties { return g.Properties }

// Validate checks the shared properties and the fuel linkage.
func (g *GeneratorTechnology) Validate() error {
	if err := g.Properties.Validate(); err != nil {
		return err
	}
	if g.Fuel != nil && g.ThermalEfficiency <= 0 {
		return fmt.Errorf("%s: fuelled generator needs a positive thermal efficiency", g.Name)
	}
	return nil
}

// FuelCost is the fuel price per unit of delivered energy.
func (g *GeneratorTechnology) FuelCost() float64 {
	if g.Fuel == nil || g.ThermalEfficiency <= 0 {
		return 0
	}
	return g.Fuel.Price / g.ThermalEfficiency
}

// TotalVariableCost is variable O&M plus fuel and emissions costs.
func (g *GeneratorTechnology) TotalVariableCost() float64 {
	return g.VariableOM + g.FuelCost() + g.Emissions.Cost()
}

// AnnualCostCurve is the screening line of the technology: annual cost per
// unit capacity against hours of operation.
func (g *GeneratorTechnology) AnnualCostCurve() geometry.Line {
	return geometry.Line{Gradient: g.TotalVariableCost(), Intercept: g.TotalFixedCost()}
}

// PeriodCost is the annual cost per unit capacity when run for periods hours.
func (g *GeneratorTechnology) PeriodCost(periods float64) float64 {
	return g.AnnualCostCurve().FindYAtX(periods)
}

// Crossing is a break-even point against another technology.
type Crossing struct {
	With *GeneratorTechnology
	X    float64
}

// InterceptDurations returns the break-even durations against every other
// technology. Parallel cost curves and g itself are skipped.
func (g *GeneratorTechnology) InterceptDurations(others []*GeneratorTechnology) []Crossing {
	line := g.AnnualCostCurve()
	var out []Crossing
	for _, o := range others {
		if o == g {
			continue
		}
		c, ok := line.FindInterceptOnLine(o.AnnualCostCurve())
		if !ok {
			continue
		}
		out = append(out, Crossing{With: o, X: c.X})
	}
	return out
}
