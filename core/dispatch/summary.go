package dispatch

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/core/optimiser"
)

// Summarise computes per-asset energy, capacity factor and costs of a
// dispatched log, together with demand statistics and unserved energy.
// Assets of groups that were not dispatched are skipped.
func Summarise(runID, scenario string, at time.Time, groups optimiser.DeploymentGroup, log *Log) metrics.DispatchSummary {
	n := log.Demand.Len()
	s := metrics.DispatchSummary{
		RunID:          runID,
		Scenario:       scenario,
		Time:           at,
		Periods:        n,
		UnservedEnergy: log.Unserved(),
	}
	if n > 0 {
		s.DemandEnergy = floats.Sum(log.Demand.Values)
		s.PeakDemand = floats.Max(log.Demand.Values)
		s.MeanDemand = stat.Mean(log.Demand.Values, nil)
		s.PeakResidual = floats.Max(log.Residual)
	}
	for _, grp := range groups {
		for _, r := range grp.Deployment {
			a := r.Asset
			d, ok := log.Column(a.Name())
			if !ok {
				continue
			}
			res := metrics.AssetResult{
				Asset:      a.Name(),
				Kind:       a.Kind().String(),
				Group:      grp.Name,
				Rank:       r.Rank,
				Capacity:   a.Capacity(),
				Energy:     energy(a, d),
				AnnualCost: a.AnnualDispatchCost(d),
			}
			if a.Capacity() > 0 && n > 0 {
				res.CapacityFactor = res.Energy / (a.Capacity() * float64(n))
			}
			if lc, err := a.LevelizedCost(d); err == nil {
				res.LevelizedCost = lc
				res.LevelizedDefined = true
			}
			s.TotalCost += res.AnnualCost
			s.Assets = append(s.Assets, res)
		}
	}
	return s
}
