package dispatch

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/gridmerit/core/demand"
)

// ErrDuplicateAsset is returned when two assets of one run share a name.
var ErrDuplicateAsset = errors.New("duplicate asset name")

// Log is the table built by one dispatch run: the demand, the residual after
// every asset, one column per asset in dispatch order and the cost scalars.
type Log struct {
	source *demand.Demand

	Demand        demand.Series
	Residual      []float64
	Order         []string
	Dispatch      map[string][]float64
	AnnualCost    map[string]float64
	LevelizedCost map[string]float64
	HourlyCost    map[string][]float64
	// UndefinedLevelized lists assets that delivered no energy and have no
	// levelized cost override.
	UndefinedLevelized []string
}

// NewLog starts a log over d. Refresh re-reads d, so a demand re-drawn
// between runs is picked up.
func NewLog(d *demand.Demand) *Log {
	l := &Log{source: d}
	l.Refresh()
	return l
}

// Refresh clears every column and copies the current demand.
func (l *Log) Refresh() {
	l.Demand = l.source.Series.Clone()
	l.Residual = make([]float64, l.Demand.Len())
	copy(l.Residual, l.Demand.Values)
	l.Order = nil
	l.Dispatch = make(map[string][]float64)
	l.AnnualCost = make(map[string]float64)
	l.LevelizedCost = make(map[string]float64)
	l.HourlyCost = make(map[string][]float64)
	l.UndefinedLevelized = nil
}

// ResidualSeries returns the current residual as a time-indexed series.
func (l *Log) ResidualSeries() demand.Series {
	return l.Demand.WithValues(l.Residual)
}

// Record stores a dispatch column and subtracts it from the residual. A name
// already in the log is rejected and leaves the log untouched.
func (l *Log) Record(name string, dispatch []float64) error {
	if _, ok := l.Dispatch[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicateAsset)
	}
	floats.Sub(l.Residual, dispatch)
	l.Dispatch[name] = dispatch
	l.Order = append(l.Order, name)
	return nil
}

// Column returns the dispatch of name.
func (l *Log) Column(name string) ([]float64, bool) {
	c, ok := l.Dispatch[name]
	return c, ok
}

// TotalAnnualCost sums the logged annual costs.
func (l *Log) TotalAnnualCost() float64 {
	var total float64
	for _, c := range l.AnnualCost {
		total += c
	}
	return total
}

// Unserved is the energy still unmet at the end of the run.
func (l *Log) Unserved() float64 {
	var total float64
	for _, v := range l.Residual {
		if v > 0 {
			total += v
		}
	}
	return total
}
