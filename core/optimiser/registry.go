package optimiser

import (
	"fmt"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/factory"
	"github.com/kilianp07/gridmerit/core/model"
	"github.com/kilianp07/gridmerit/core/technology"
)

// Portfolio is what a planner ranks: candidate generator technologies, an
// installed fleet and the demand they serve.
type Portfolio struct {
	Technologies []*technology.GeneratorTechnology
	Assets       []asset.Asset
	Demand       demand.Demand
}

// Planner turns a portfolio into groups of ranked assets.
type Planner interface {
	Plan(p Portfolio) (DeploymentGroup, error)
}

// Plan builds the merit order of the candidate technologies. Installed
// passive and storage assets are ranked by marginal cost ahead of it.
func (m MeritOrder) Plan(p Portfolio) (DeploymentGroup, error) {
	dep, err := m.Optimise(p.Technologies, p.Demand)
	if err != nil {
		return nil, err
	}
	var fleet []asset.Asset
	for _, a := range p.Assets {
		if a.Kind() != model.KindGenerator {
			fleet = append(fleet, a)
		}
	}
	names := make(map[string]bool, len(dep))
	for _, r := range dep {
		names[r.Asset.Name()] = true
	}
	for _, a := range fleet {
		if names[a.Name()] {
			return nil, fmt.Errorf("installed %s %q: %w", a.Kind(), a.Name(), ErrDuplicateName)
		}
		names[a.Name()] = true
	}
	groups := SRMC{GroupOrder: []model.AssetKind{model.KindPassive, model.KindStorage}}.Optimise(fleet)
	return append(groups, Group{Name: model.KindGenerator.String(), Deployment: dep}), nil
}

// Plan ranks the installed fleet.
func (s SRMC) Plan(p Portfolio) (DeploymentGroup, error) {
	if len(p.Assets) == 0 {
		return nil, ErrNoTechnologies
	}
	return s.Optimise(p.Assets), nil
}

// Registry holds planner constructors by type name.
var Registry = factory.NewRegistry[Planner]()

type srmcConf struct {
	GroupOrder []string `json:"group_order"`
}

func init() {
	Registry.MustRegister("merit_order", func(map[string]any) (Planner, error) {
		return MeritOrder{}, nil
	})
	Registry.MustRegister("srmc", func(conf map[string]any) (Planner, error) {
		var c srmcConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		var order []model.AssetKind
		for _, name := range c.GroupOrder {
			k, ok := model.ParseAssetKind(name)
			if !ok {
				return nil, fmt.Errorf("unknown asset group %q", name)
			}
			order = append(order, k)
		}
		return SRMC{GroupOrder: order}, nil
	})
}
