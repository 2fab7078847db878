package asset

import (
	"math"
	"time"

	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/core/technology"
)

// StorageOptimiser proposes hourly charge or discharge requests.
type StorageOptimiser interface {
	// SetLimit may re-plan using the series and the energy currently held.
	SetLimit(t time.Time, s demand.Series, energy float64)
	// DispatchProposal returns a negative discharge request or a positive
	// charge offer for demand value v.
	DispatchProposal(v float64) float64
}

// Storage is an energy store with a state of charge in [0, 1].
type Storage struct {
	base
	Tech           *technology.StorageTechnology
	HoursStorage   float64
	ChargeCapacity float64
	StateOfCharge  float64
	Optimiser      StorageOptimiser
}

// NewStorage installs a full store. Charge capacity defaults to capacity.
func NewStorage(name string, tech *technology.StorageTechnology, capacity, hours float64, opt StorageOptimiser) *Storage {
	return &Storage{
		base:           newBase(name, capacity),
		Tech:           tech,
		HoursStorage:   hours,
		ChargeCapacity: capacity,
		StateOfCharge:  1,
		Optimiser:      opt,
	}
}

func (s *Storage) Kind() model.AssetKind             { return model.KindStorage }
func (s *Storage) Technology() technology.Technology { return s.Tech }
func (s *Storage) MarginalCost() float64             { return s.Tech.TotalVariableCost() }
func (s *Storage) Detail() model.InstallationDetail  { return detail(s) }

// SetCapacity resizes the store. The charge limit keeps its ratio to
// capacity; from zero capacity it restarts equal to it.
func (s *Storage) SetCapacity(c float64) {
	if s.capacity > 0 {
		s.ChargeCapacity *= c / s.capacity
	} else {
		s.ChargeCapacity = c
	}
	s.capacity = c
}

// EnergyCapacity is capacity times hours of storage.
func (s *Storage) EnergyCapacity() float64 { return s.capacity * s.HoursStorage }

// DepthOfDischarge is the empty fraction of the store.
func (s *Storage) DepthOfDischarge() float64 { return 1 - s.StateOfCharge }

// AvailableEnergy is the energy currently held.
func (s *Storage) AvailableEnergy() float64 { return s.StateOfCharge * s.EnergyCapacity() }

// AvailableStorage is the room left to charge.
func (s *Storage) AvailableStorage() float64 { return s.DepthOfDischarge() * s.EnergyCapacity() }

// ResetSoC sets the state of charge, clamped to [0, 1].
func (s *Storage) ResetSoC(soc float64) { s.StateOfCharge = clip(soc, 0, 1) }

// Reset fills the store and resets the optimiser when it supports it.
func (s *Storage) Reset() {
	s.ResetSoC(1)
	if r, ok := s.Optimiser.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// UpdateState moves the state of charge by energy, positive meaning charge.
// Round-trip losses are taken on charge only.
func (s *Storage) UpdateState(energy float64) {
	ec := s.EnergyCapacity()
	if ec <= 0 {
		return
	}
	if energy > 0 {
		energy *= s.Tech.RoundTripEfficiency
	}
	s.StateOfCharge = clip(s.StateOfCharge+energy/ec, 0, 1)
}

// EnergyRequest exchanges energy with the store and returns the amount
// actually exchanged. A negative request discharges, capped by capacity and
// the energy held; a positive one charges, capped by the room left and the
// charge capacity.
func (s *Storage) EnergyRequest(energy float64) float64 {
	var exchange float64
	if energy < 0 {
		exchange = -math.Min(math.Min(-energy, s.capacity), s.AvailableEnergy())
	} else {
		exchange = math.Min(math.Min(energy, s.AvailableStorage()), s.ChargeCapacity)
	}
	s.UpdateState(exchange)
	return exchange
}

// Dispatch walks the residual hour by hour, letting the optimiser re-plan
// and then placing its proposal. The result is energy delivered to the grid:
// discharge positive, charge negative.
func (s *Storage) Dispatch(residual demand.Series) []float64 {
	out := make([]float64, residual.Len())
	if s.Optimiser == nil {
		return out
	}
	for i, v := range residual.Values {
		s.Optimiser.SetLimit(residual.TimeAt(i), residual, s.AvailableEnergy())
		out[i] = -s.EnergyRequest(s.Optimiser.DispatchProposal(v))
	}
	return out
}

// Delivered sums the discharged energy of a dispatch.
func Delivered(dispatch []float64) float64 {
	var total float64
	for _, v := range dispatch {
		if v > 0 {
			total += v
		}
	}
	return total
}

// AnnualDispatchCost charges variable cost on delivered energy plus fixed
// cost on capacity.
func (s *Storage) AnnualDispatchCost(dispatch []float64) float64 {
	return annualCost(s.Tech, s.capacity, Delivered(dispatch))
}

// LevelizedCost is the annual cost per unit of delivered energy.
func (s *Storage) LevelizedCost(dispatch []float64) (float64, error) {
	return levelized(s.AnnualDispatchCost(dispatch), Delivered(dispatch))
}

// HourlyDispatchCost prices each hour at the levelized cost.
func (s *Storage) HourlyDispatchCost(dispatch []float64) ([]float64, error) {
	lc, err := s.LevelizedCost(dispatch)
	if err != nil {
		return nil, err
	}
	return hourly(dispatch, lc), nil
}
