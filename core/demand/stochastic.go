package demand

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Resource is anything that exposes an hourly profile.
type Resource interface {
	Data() []float64
}

// Refresher re-draws its stochastic state. Implementations must not be
// refreshed while a dispatch reads their data.
type Refresher interface {
	Refresh()
}

// StaticResource is a fixed profile.
type StaticResource []float64

// Data returns the profile.
func (r StaticResource) Data() []float64 { return r }

// ChoiceCurve picks one of several sample years uniformly at random and
// scales it. Optional multiplicative Gaussian noise is applied per hour.
type ChoiceCurve struct {
	Samples [][]float64
	Scale   float64
	// Noise is the standard deviation of the per-hour multiplier around 1.
	// Zero disables it.
	Noise float64

	rng     *rand.Rand
	current []float64
	choice  int
}

// NewChoiceCurve validates the samples and performs the first draw.
func NewChoiceCurve(samples [][]float64, scale float64, seed uint64) (*ChoiceCurve, error) {
	if len(samples) == 0 {
		return nil, errors.New("choice curve needs at least one sample")
	}
	for _, s := range samples {
		if len(s) == 0 {
			return nil, ErrEmptySeries
		}
		if len(s) > HoursPerYear {
			return nil, ErrSeriesTooLong
		}
	}
	if scale == 0 {
		scale = 1
	}
	c := &ChoiceCurve{
		Samples: samples,
		Scale:   scale,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	c.Refresh()
	return c, nil
}

// Refresh draws a new sample year.
func (c *ChoiceCurve) Refresh() {
	c.choice = c.rng.IntN(len(c.Samples))
	src := c.Samples[c.choice]
	out := make([]float64, len(src))
	copy(out, src)
	floats.Scale(c.Scale, out)
	if c.Noise > 0 {
		n := distuv.Normal{Mu: 1, Sigma: c.Noise, Src: c.rng}
		for i := range out {
			if f := n.Rand(); f > 0 {
				out[i] *= f
			} else {
				out[i] = 0
			}
		}
	}
	c.current = out
}

// Choice is the index of the sample currently drawn.
func (c *ChoiceCurve) Choice() int { return c.choice }

// Data returns the current draw.
func (c *ChoiceCurve) Data() []float64 { return c.current }

// StochasticDemand ties a demand to a curve so that refreshing the curve
// replaces the demand values.
type StochasticDemand struct {
	Demand *Demand
	Curve  *ChoiceCurve
}

// Refresh re-draws the curve and copies it into the demand.
func (s *StochasticDemand) Refresh() {
	s.Curve.Refresh()
	s.Demand.Series = s.Demand.Series.WithValues(s.Curve.Data())
}

// Constant returns a flat profile of n hours at v.
func Constant(v float64, n int) StaticResource {
	out := make(StaticResource, n)
	for i := range out {
		out[i] = v
	}
	return out
}
