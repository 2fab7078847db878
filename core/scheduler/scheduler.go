// Package scheduler decides when a storage controller re-plans and provides
// the forecast and peak-area maths used to set its discharge threshold.
package scheduler

import (
	"sort"
	"time"

	"github.com/kilianp07/gridmerit/core/demand"
)

// Scheduler answers whether an action is due at a given time. Periodic
// events fire every Interval from Start; one-off CustomEvents fire once and
// are then consumed.
type Scheduler struct {
	Start        time.Time
	Interval     time.Duration
	CustomEvents []time.Time

	next    time.Time
	started bool
}

// New returns a scheduler with the first periodic event at start.
func New(start time.Time, interval time.Duration, custom ...time.Time) *Scheduler {
	events := make([]time.Time, len(custom))
	copy(events, custom)
	return &Scheduler{Start: start, Interval: interval, CustomEvents: events}
}

// EventDue reports whether an event is due at t. A due periodic event moves
// the next one to t+Interval; due custom events are removed.
func (s *Scheduler) EventDue(t time.Time) bool {
	if !s.started {
		s.next = s.Start
		s.started = true
	}
	if !s.next.After(t) {
		s.next = t.Add(s.Interval)
		return true
	}
	due := false
	kept := s.CustomEvents[:0]
	for _, e := range s.CustomEvents {
		if !e.After(t) {
			due = true
			continue
		}
		kept = append(kept, e)
	}
	s.CustomEvents = kept
	return due
}

// Reset rewinds the periodic schedule to Start. Consumed custom events are
// not restored.
func (s *Scheduler) Reset() { s.started = false }

// Forecaster returns the values expected over a window starting at start.
type Forecaster interface {
	LookAhead(s demand.Series, start time.Time) []float64
}

// PerfectForecaster looks ahead into the actual series. The window is
// inclusive of both ends.
type PerfectForecaster struct {
	Window time.Duration
}

// LookAhead returns the slice of s covering [start, start+Window].
func (f PerfectForecaster) LookAhead(s demand.Series, start time.Time) []float64 {
	from := s.IndexOf(start)
	to := s.IndexOf(start.Add(f.Window))
	if from < 0 {
		from = 0
	}
	if to >= s.Len() {
		to = s.Len() - 1
	}
	if from > to {
		return nil
	}
	return s.Values[from : to+1]
}

// CumulativePeakAreas takes an ascending series and returns the area shaved
// off the top as the threshold is lowered one level at a time. Element k is
// the energy needed to bring the threshold down to the value k+1 places below
// the peak.
func CumulativePeakAreas(sorted []float64) []float64 {
	n := len(sorted)
	if n < 2 {
		return nil
	}
	areas := make([]float64, n-1)
	var total float64
	for k := 0; k < n-1; k++ {
		i := n - 2 - k
		// points strictly above sorted[i]
		total += (sorted[i+1] - sorted[i]) * float64(n-1-i)
		areas[k] = total
	}
	return areas
}

// PeakAreaIndex is the first index whose cumulative area reaches energy.
func PeakAreaIndex(areas []float64, energy float64) int {
	return sort.SearchFloat64s(areas, energy)
}

// PeakShaveOptimiser holds a discharge threshold that only ever rises. It
// re-plans when the scheduler says an event is due.
type PeakShaveOptimiser struct {
	Scheduler          *Scheduler
	Forecaster         Forecaster
	DischargeThreshold float64
}

// SetLimit proposes a new threshold from the forecast window at t so that
// energy is just enough to shave every value above it.
func (o *PeakShaveOptimiser) SetLimit(t time.Time, s demand.Series, energy float64) {
	if !o.Scheduler.EventDue(t) {
		return
	}
	window := o.Forecaster.LookAhead(s, t)
	if len(window) == 0 {
		return
	}
	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)
	idx := PeakAreaIndex(CumulativePeakAreas(sorted), energy)
	proposed := sorted[len(sorted)-1-idx]
	if proposed > o.DischargeThreshold {
		o.DischargeThreshold = proposed
	}
}

// DispatchProposal is the threshold minus the demand value. A negative
// proposal asks the store to discharge; a positive one offers charge.
func (o *PeakShaveOptimiser) DispatchProposal(v float64) float64 {
	return o.DischargeThreshold - v
}

// Reset clears the threshold and rewinds the scheduler.
func (o *PeakShaveOptimiser) Reset() {
	o.DischargeThreshold = 0
	o.Scheduler.Reset()
}
