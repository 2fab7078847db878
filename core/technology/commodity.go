package technology

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Commodity is anything bought at a market price: fuels and emissions
// allowances.
type Commodity struct {
	Name       string  `json:"name" yaml:"name"`
	Price      float64 `json:"price" yaml:"price"`
	PriceUnits string  `json:"price_units" yaml:"price_units"`
}

// Fuel is burnt by thermal generators.
type Fuel struct {
	Commodity
}

// EmissionsCharacteristics couple an emissions rate per unit energy to the
// tariff paid per unit emitted.
type EmissionsCharacteristics struct {
	Rate      float64
	RateUnits string
	Tariff    *Commodity
}

// Cost is the emissions cost per unit energy.
func (e *EmissionsCharacteristics) Cost() float64 {
	if e == nil || e.Tariff == nil {
		return 0
	}
	return e.Rate * e.Tariff.Price
}

// PriceModel re-draws the prices of the commodities it owns.
type PriceModel interface {
	Refresh()
}

// StaticPrice pins every commodity to the same price.
type StaticPrice struct {
	Price       float64
	Commodities []*Commodity
}

// Refresh sets the configured price.
func (s *StaticPrice) Refresh() {
	for _, c := range s.Commodities {
		c.Price = s.Price
	}
}

// LogNormalPrice draws a single log-normal price per refresh and applies it to
// every commodity it owns.
type LogNormalPrice struct {
	Commodities []*Commodity
	dist        distuv.LogNormal
}

// NewLogNormalPrice builds a price model whose underlying normal has mean mu
// and standard deviation sigma.
func NewLogNormalPrice(mu, sigma float64, seed uint64, commodities ...*Commodity) *LogNormalPrice {
	return &LogNormalPrice{
		Commodities: commodities,
		dist: distuv.LogNormal{
			Mu:    mu,
			Sigma: sigma,
			Src:   rand.New(rand.NewPCG(seed, seed+1)),
		},
	}
}

// Refresh draws and applies a new price.
func (l *LogNormalPrice) Refresh() {
	p := l.dist.Rand()
	for _, c := range l.Commodities {
		c.Price = p
	}
}

// Markets refreshes a set of price models together.
type Markets []PriceModel

// Refresh re-draws every market.
func (m Markets) Refresh() {
	for _, pm := range m {
		pm.Refresh()
	}
}
