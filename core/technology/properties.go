// Package technology describes the immutable techno-economic templates that
// installed assets are built from, and the commodity markets that feed their
// variable costs.
package technology

import (
	"errors"
	"fmt"
	"math"
)

// Resource classes used by the catalogue.
const (
	ClassGenerator = "generator"
	ClassStorage   = "storage"
	ClassPassive   = "passive"
)

// Properties are the cost fields shared by every technology. Costs are per
// unit of capacity (fixed) or energy (variable).
type Properties struct {
	Name          string  `json:"name" yaml:"name"`
	ResourceClass string  `json:"resource_class" yaml:"resource_class"`
	CapitalCost   float64 `json:"capital_cost" yaml:"capital_cost"`
	Life          float64 `json:"life" yaml:"life"`
	FixedOM       float64 `json:"fixed_om" yaml:"fixed_om"`
	VariableOM    float64 `json:"variable_om" yaml:"variable_om"`
	InterestRate  float64 `json:"interest_rate" yaml:"interest_rate"`
}

// Validate rejects properties that would make the derived costs undefined.
func (p Properties) Validate() error {
	if p.Name == "" {
		return errors.New("technology name is required")
	}
	if p.CapitalCost > 0 && p.Life <= 0 {
		return fmt.Errorf("%s: life must be positive", p.Name)
	}
	if p.InterestRate < 0 {
		return fmt.Errorf("%s: interest rate must not be negative", p.Name)
	}
	return nil
}

// CRF is the capital recovery factor r(1+r)^n / ((1+r)^n - 1). A zero rate
// degenerates to straight-line recovery 1/n.
func (p Properties) CRF() float64 {
	if p.Life <= 0 {
		return 0
	}
	r := p.InterestRate
	if r == 0 {
		return 1 / p.Life
	}
	g := math.Pow(1+r, p.Life)
	return r * g / (g - 1)
}

// AnnualisedCapital is the capital cost spread over the life of the plant.
func (p Properties) AnnualisedCapital() float64 { return p.CapitalCost * p.CRF() }

// TotalFixedCost is the annual fixed cost per unit of capacity.
func (p Properties) TotalFixedCost() float64 { return p.AnnualisedCapital() + p.FixedOM }

// Technology is the capability shared by generator, storage and passive
// templates.
type Technology interface {
	Props() Properties
	TotalFixedCost() float64
	TotalVariableCost() float64
}
