// Package demand holds hourly demand and resource series, the load-duration
// curve built from them and the stochastic curves that re-sample them between
// Monte-Carlo iterations.
package demand

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// HoursPerYear is the length of a standard (non-leap) hourly year.
const HoursPerYear = 8760

var (
	// ErrSeriesTooLong is returned for series longer than a standard year.
	ErrSeriesTooLong = errors.New("series longer than a standard year")
	// ErrInvalidValue is returned for negative or non-finite demand values.
	ErrInvalidValue = errors.New("invalid series value")
	// ErrEmptySeries is returned when a series has no values.
	ErrEmptySeries = errors.New("empty series")
)

// Series is an hourly, time-indexed sequence of values.
type Series struct {
	Name   string
	Units  string
	Start  time.Time
	Step   time.Duration
	Values []float64
}

// NewSeries validates values and returns a Series starting at start with an
// hourly step. The slice is copied.
func NewSeries(name, units string, start time.Time, values []float64) (Series, error) {
	if len(values) == 0 {
		return Series{}, fmt.Errorf("%s: %w", name, ErrEmptySeries)
	}
	if len(values) > HoursPerYear {
		return Series{}, fmt.Errorf("%s has %d values: %w", name, len(values), ErrSeriesTooLong)
	}
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Series{}, fmt.Errorf("%s[%d]=%v: %w", name, i, v, ErrInvalidValue)
		}
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	return Series{Name: name, Units: units, Start: start, Step: time.Hour, Values: cp}, nil
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Values) }

// TimeAt returns the timestamp of sample i.
func (s Series) TimeAt(i int) time.Time {
	step := s.Step
	if step <= 0 {
		step = time.Hour
	}
	return s.Start.Add(time.Duration(i) * step)
}

// IndexOf returns the sample index for t, rounding down. The result may fall
// outside the series.
func (s Series) IndexOf(t time.Time) int {
	step := s.Step
	if step <= 0 {
		step = time.Hour
	}
	return int(t.Sub(s.Start) / step)
}

// WithValues returns a copy of s carrying values instead of its own.
func (s Series) WithValues(values []float64) Series {
	cp := make([]float64, len(values))
	copy(cp, values)
	s.Values = cp
	return s
}

// Clone deep-copies the series.
func (s Series) Clone() Series { return s.WithValues(s.Values) }

// IsLeap reports whether year has a February 29th.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// StripLeapDay removes the 24 hours of February 29th from a full leap-year
// hourly series. Other inputs are returned unchanged (copied).
func StripLeapDay(values []float64, year int) []float64 {
	if !IsLeap(year) || len(values) != HoursPerYear+24 {
		cp := make([]float64, len(values))
		copy(cp, values)
		return cp
	}
	// January (31) + February 1..28 precede the leap day.
	from := (31 + 28) * 24
	out := make([]float64, 0, HoursPerYear)
	out = append(out, values[:from]...)
	return append(out, values[from+24:]...)
}

// Demand is a demand series together with the size of its duration domain.
type Demand struct {
	Series
	Periods int
}

// NewDemand wraps s; periods defaults to the series length.
func NewDemand(s Series, periods int) Demand {
	if periods <= 0 {
		periods = s.Len()
	}
	return Demand{Series: s, Periods: periods}
}

// Validate checks the duration domain against the series.
func (d Demand) Validate() error {
	if d.Len() == 0 {
		return ErrEmptySeries
	}
	if d.Len() > HoursPerYear {
		return fmt.Errorf("demand %s: %w", d.Name, ErrSeriesTooLong)
	}
	if d.Periods <= 0 {
		return fmt.Errorf("demand %s: periods must be positive", d.Name)
	}
	return nil
}

// Peak returns the highest demand value.
func (d Demand) Peak() float64 { return maxOf(d.Values) }

// LDC builds the load-duration curve of the demand.
func (d Demand) LDC() *LoadDurationCurve { return NewLoadDurationCurve(d.Values) }

// Data satisfies Resource for demand used directly as a profile.
func (d Demand) Data() []float64 { return d.Values }

func maxOf(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Max(v)
}
