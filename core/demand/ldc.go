package demand

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// LoadDurationCurve is a demand series sorted descending and re-indexed by
// rank. Rank i is read as a duration of i periods: the demand at rank i is
// equalled or exceeded for i+1 periods.
type LoadDurationCurve struct {
	data []float64
}

// NewLoadDurationCurve sorts a copy of values in descending order.
func NewLoadDurationCurve(values []float64) *LoadDurationCurve {
	data := make([]float64, len(values))
	copy(data, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(data)))
	return &LoadDurationCurve{data: data}
}

// Values returns a copy of the sorted curve.
func (c *LoadDurationCurve) Values() []float64 {
	cp := make([]float64, len(c.data))
	copy(cp, c.data)
	return cp
}

// SampleSize is the number of points on the curve.
func (c *LoadDurationCurve) SampleSize() int { return len(c.data) }

// Peak is the first (largest) value.
func (c *LoadDurationCurve) Peak() float64 {
	if len(c.data) == 0 {
		return 0
	}
	return c.data[0]
}

// Min is the last (smallest) value.
func (c *LoadDurationCurve) Min() float64 {
	if len(c.data) == 0 {
		return 0
	}
	return c.data[len(c.data)-1]
}

// FindYAtX returns the demand at duration x. The lookup takes the right-side
// insertion point of x in the ascending rank index 0..N-1, i.e. the first rank
// strictly greater than x, clamped to the curve.
func (c *LoadDurationCurve) FindYAtX(x float64) float64 {
	n := len(c.data)
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return float64(i) > x })
	if i >= n {
		i = n - 1
	}
	return c.data[i]
}

// FindArea integrates the normalised curve over the points whose demand,
// as a proportion of peak, lies within [lo, hi]. x is the duration fraction
// so the result is a proportion of the unit square.
func (c *LoadDurationCurve) FindArea(lo, hi float64) float64 {
	n := len(c.data)
	peak := c.Peak()
	if n < 2 || peak == 0 || hi < lo {
		return 0
	}
	var xs, ys []float64
	for i, v := range c.data {
		y := v / peak
		if y < lo || y > hi {
			continue
		}
		xs = append(xs, float64(i)/float64(n-1))
		ys = append(ys, y)
	}
	if len(xs) < 2 {
		return 0
	}
	return integrate.Trapezoidal(xs, ys)
}

// Energy returns the total energy under the curve.
func (c *LoadDurationCurve) Energy() float64 { return floats.Sum(c.data) }
