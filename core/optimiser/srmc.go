package optimiser

import (
	"sort"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/model"
)

// DefaultGroupOrder dispatches passive output first, then storage, then
// dispatchable generation.
var DefaultGroupOrder = []model.AssetKind{model.KindPassive, model.KindStorage, model.KindGenerator}

// SRMC orders an installed fleet by short-run marginal cost without touching
// capacities.
type SRMC struct {
	GroupOrder []model.AssetKind
}

// Rank stable-sorts assets ascending by marginal cost.
func (s SRMC) Rank(assets []asset.Asset) Deployment {
	sorted := make([]asset.Asset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MarginalCost() < sorted[j].MarginalCost()
	})
	out := make(Deployment, len(sorted))
	for i, a := range sorted {
		out[i] = Ranked{Asset: a, Rank: i + 1, Capacity: a.Capacity()}
	}
	return out
}

// Optimise splits assets by kind and ranks each group. Groups follow
// GroupOrder; empty groups are left out.
func (s SRMC) Optimise(assets []asset.Asset) DeploymentGroup {
	order := s.GroupOrder
	if len(order) == 0 {
		order = DefaultGroupOrder
	}
	byKind := make(map[model.AssetKind][]asset.Asset)
	for _, a := range assets {
		byKind[a.Kind()] = append(byKind[a.Kind()], a)
	}
	var out DeploymentGroup
	for _, k := range order {
		if len(byKind[k]) == 0 {
			continue
		}
		out = append(out, Group{Name: k.String(), Deployment: s.Rank(byKind[k])})
	}
	return out
}
