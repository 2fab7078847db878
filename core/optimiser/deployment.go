// Package optimiser ranks technologies and installed assets into deployment
// orders: a merit order built from the break-even envelope of screening
// curves, and a short-run marginal cost order for existing fleets.
package optimiser

import (
	"fmt"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/model"
)

// Ranked is one asset of a deployment with its place in the order.
type Ranked struct {
	Asset asset.Asset
	Rank  int
	// DeployAt is the demand level at which the asset starts serving load.
	DeployAt float64
	// Capacity is the block of the load-duration curve assigned to the asset.
	Capacity float64
}

// Deployment is an ordered list of ranked assets.
type Deployment []Ranked

// Assets returns the assets in rank order.
func (d Deployment) Assets() []asset.Asset {
	out := make([]asset.Asset, len(d))
	for i, r := range d {
		out[i] = r.Asset
	}
	return out
}

// TotalCapacity sums the assigned capacities.
func (d Deployment) TotalCapacity() float64 {
	var total float64
	for _, r := range d {
		total += r.Capacity
	}
	return total
}

// Details returns reporting records in rank order.
func (d Deployment) Details() []model.InstallationDetail {
	out := make([]model.InstallationDetail, len(d))
	for i, r := range d {
		det := r.Asset.Detail()
		det.Rank = r.Rank
		det.DeployAt = r.DeployAt
		out[i] = det
	}
	return out
}

// Validate checks that ranks run 1..N in order.
func (d Deployment) Validate() error {
	for i, r := range d {
		if r.Rank != i+1 {
			return fmt.Errorf("position %d holds rank %d: %w", i, r.Rank, ErrEnvelopeTraversal)
		}
	}
	return nil
}

// Group is a named deployment dispatched as a unit.
type Group struct {
	Name       string
	Deployment Deployment
}

// DeploymentGroup holds groups in dispatch order.
type DeploymentGroup []Group

// Assets flattens every group in order.
func (g DeploymentGroup) Assets() []asset.Asset {
	var out []asset.Asset
	for _, grp := range g {
		out = append(out, grp.Deployment.Assets()...)
	}
	return out
}

// Details flattens the reporting records of every group.
func (g DeploymentGroup) Details() []model.InstallationDetail {
	var out []model.InstallationDetail
	for _, grp := range g {
		out = append(out, grp.Deployment.Details()...)
	}
	return out
}

// Find returns the asset called name.
func (g DeploymentGroup) Find(name string) (asset.Asset, bool) {
	for _, grp := range g {
		for _, r := range grp.Deployment {
			if r.Asset.Name() == name {
				return r.Asset, true
			}
		}
	}
	return nil, false
}
