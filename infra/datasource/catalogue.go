package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/gridmerit/core/asset"
	"github.com/kilianp07/gridmerit/core/capacity"
	"github.com/kilianp07/gridmerit/core/demand"
	"github.com/kilianp07/gridmerit/core/technology"
)

// Catalogue is the file layout of commodities, technology templates and the
// installed fleet. Fuels and tariffs reference commodities by name.
type Catalogue struct {
	Commodities  []technology.Commodity `json:"commodities" yaml:"commodities"`
	Markets      []MarketSpec           `json:"markets" yaml:"markets"`
	Technologies []TechnologySpec       `json:"technologies" yaml:"technologies"`
	Assets       []AssetSpec            `json:"assets" yaml:"assets"`
}

// MarketSpec configures a price model over named commodities.
type MarketSpec struct {
	// Type is "static" or "lognormal".
	Type        string   `json:"type" yaml:"type"`
	Price       float64  `json:"price" yaml:"price"`
	Mu          float64  `json:"mu" yaml:"mu"`
	Sigma       float64  `json:"sigma" yaml:"sigma"`
	Seed        uint64   `json:"seed" yaml:"seed"`
	Commodities []string `json:"commodities" yaml:"commodities"`
}

// EmissionsSpec references the tariff commodity by name.
type EmissionsSpec struct {
	Rate      float64 `json:"rate" yaml:"rate"`
	RateUnits string  `json:"rate_units" yaml:"rate_units"`
	Tariff    string  `json:"tariff" yaml:"tariff"`
}

// TechnologySpec is one template. ResourceClass selects the variant.
type TechnologySpec struct {
	technology.Properties `yaml:",inline"`
	ThermalEfficiency     float64        `json:"thermal_efficiency" yaml:"thermal_efficiency"`
	Fuel                  string         `json:"fuel" yaml:"fuel"`
	Emissions             *EmissionsSpec `json:"emissions" yaml:"emissions"`
	RoundTripEfficiency   float64        `json:"round_trip_efficiency" yaml:"round_trip_efficiency"`
	LevelizedCost         *float64       `json:"levelized_cost" yaml:"levelized_cost"`
}

// ProfileSpec describes an hourly profile. The first set field wins: File,
// Samples, Values, Constant.
type ProfileSpec struct {
	File     string    `json:"file" yaml:"file"`
	Column   string    `json:"column" yaml:"column"`
	Samples  []string  `json:"samples" yaml:"samples"`
	Scale    float64   `json:"scale" yaml:"scale"`
	Noise    float64   `json:"noise" yaml:"noise"`
	Seed     uint64    `json:"seed" yaml:"seed"`
	Values   []float64 `json:"values" yaml:"values"`
	Constant *float64  `json:"constant" yaml:"constant"`
}

// AssetSpec is one installed unit.
type AssetSpec struct {
	Name             string       `json:"name" yaml:"name"`
	Technology       string       `json:"technology" yaml:"technology"`
	Capacity         float64      `json:"capacity" yaml:"capacity"`
	CappableFraction *float64     `json:"cappable_fraction" yaml:"cappable_fraction"`
	HoursStorage     float64      `json:"hours_storage" yaml:"hours_storage"`
	ChargeCapacity   float64      `json:"charge_capacity" yaml:"charge_capacity"`
	Resource         *ProfileSpec `json:"resource" yaml:"resource"`
	AsFactor         bool         `json:"as_factor" yaml:"as_factor"`
	Constraint       *ProfileSpec `json:"constraint" yaml:"constraint"`
	// ConstraintAsFactor scales the constraint by the installed capacity.
	ConstraintAsFactor bool `json:"constraint_as_factor" yaml:"constraint_as_factor"`
}

// LoadCatalogue reads a YAML or JSON catalogue.
func LoadCatalogue(path string) (*Catalogue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCatalogue(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeCatalogue reads a catalogue in the given format.
func DecodeCatalogue(r io.Reader, format string) (*Catalogue, error) {
	var c Catalogue
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&c); err != nil {
			return nil, fmt.Errorf("decode catalogue: %w", err)
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&c); err != nil {
			return nil, fmt.Errorf("decode catalogue: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalogue format: %s", format)
	}
	return &c, nil
}

// BuildOptions control how a catalogue becomes live objects.
type BuildOptions struct {
	// Dir resolves relative profile files.
	Dir string
	// Hours is the length of constant profiles.
	Hours int
	// Storage supplies a fresh optimiser for every storage asset.
	Storage func() asset.StorageOptimiser
	// SeedOffset is added to every configured seed so that Monte-Carlo
	// iterations draw independent samples.
	SeedOffset uint64
}

// Fleet is a built catalogue.
type Fleet struct {
	Commodities  map[string]*technology.Commodity
	Technologies []technology.Technology
	// Candidates are the generator templates a merit order can rank.
	Candidates  []*technology.GeneratorTechnology
	Assets      []asset.Asset
	Markets     technology.Markets
	Constraints capacity.Constraints
	// Refreshers are the stochastic profiles of the fleet.
	Refreshers []demand.Refresher
}

// Build resolves names and constructs technologies, markets and assets.
func (c *Catalogue) Build(opts BuildOptions) (*Fleet, error) {
	if opts.Hours <= 0 {
		opts.Hours = demand.HoursPerYear
	}
	// Every commodity lives inside a Fuel so that generators, tariffs and
	// markets share one price.
	fuels := make(map[string]*technology.Fuel, len(c.Commodities))
	fl := &Fleet{Commodities: make(map[string]*technology.Commodity, len(c.Commodities))}
	for _, cm := range c.Commodities {
		if cm.Name == "" {
			return nil, errors.New("commodity name is required")
		}
		f := &technology.Fuel{Commodity: cm}
		fuels[cm.Name] = f
		fl.Commodities[cm.Name] = &f.Commodity
	}
	for _, m := range c.Markets {
		pm, err := m.build(fl.Commodities, opts.SeedOffset)
		if err != nil {
			return nil, err
		}
		fl.Markets = append(fl.Markets, pm)
	}

	techs := make(map[string]technology.Technology, len(c.Technologies))
	for _, ts := range c.Technologies {
		t, err := ts.build(fuels)
		if err != nil {
			return nil, err
		}
		if _, dup := techs[ts.Name]; dup {
			return nil, fmt.Errorf("duplicate technology %q", ts.Name)
		}
		techs[ts.Name] = t
		fl.Technologies = append(fl.Technologies, t)
		if g, ok := t.(*technology.GeneratorTechnology); ok {
			fl.Candidates = append(fl.Candidates, g)
		}
	}

	names := make(map[string]bool, len(c.Assets))
	for _, as := range c.Assets {
		if names[as.Name] {
			return nil, fmt.Errorf("duplicate asset %q", as.Name)
		}
		names[as.Name] = true
		a, err := fl.buildAsset(as, techs, opts)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", as.Name, err)
		}
		fl.Assets = append(fl.Assets, a)
	}
	return fl, nil
}

func (m MarketSpec) build(commodities map[string]*technology.Commodity, seedOffset uint64) (technology.PriceModel, error) {
	owned := make([]*technology.Commodity, 0, len(m.Commodities))
	for _, name := range m.Commodities {
		cm, ok := commodities[name]
		if !ok {
			return nil, fmt.Errorf("market references unknown commodity %q", name)
		}
		owned = append(owned, cm)
	}
	switch m.Type {
	case "static", "":
		return &technology.StaticPrice{Price: m.Price, Commodities: owned}, nil
	case "lognormal":
		if m.Sigma < 0 {
			return nil, fmt.Errorf("lognormal market sigma must not be negative")
		}
		return technology.NewLogNormalPrice(m.Mu, m.Sigma, m.Seed+seedOffset, owned...), nil
	default:
		return nil, fmt.Errorf("unknown market type %q", m.Type)
	}
}

func (ts TechnologySpec) build(fuels map[string]*technology.Fuel) (technology.Technology, error) {
	switch ts.ResourceClass {
	case technology.ClassGenerator:
		g := &technology.GeneratorTechnology{Properties: ts.Properties, ThermalEfficiency: ts.ThermalEfficiency}
		if ts.Fuel != "" {
			f, ok := fuels[ts.Fuel]
			if !ok {
				return nil, fmt.Errorf("%s: unknown fuel %q", ts.Name, ts.Fuel)
			}
			g.Fuel = f
		}
		if e := ts.Emissions; e != nil {
			tariff, ok := fuels[e.Tariff]
			if !ok {
				return nil, fmt.Errorf("%s: unknown emissions tariff %q", ts.Name, e.Tariff)
			}
			g.Emissions = &technology.EmissionsCharacteristics{Rate: e.Rate, RateUnits: e.RateUnits, Tariff: &tariff.Commodity}
		}
		return g, g.Validate()
	case technology.ClassStorage:
		s := &technology.StorageTechnology{Properties: ts.Properties, RoundTripEfficiency: ts.RoundTripEfficiency}
		return s, s.Validate()
	case technology.ClassPassive:
		p := &technology.PassiveTechnology{Properties: ts.Properties, RoundTripEfficiency: ts.RoundTripEfficiency, LevelizedCost: ts.LevelizedCost}
		return p, p.Validate()
	default:
		return nil, fmt.Errorf("%s: unknown resource class %q", ts.Name, ts.ResourceClass)
	}
}

func (fl *Fleet) buildAsset(as AssetSpec, techs map[string]technology.Technology, opts BuildOptions) (asset.Asset, error) {
	if as.Name == "" {
		return nil, errors.New("asset name is required")
	}
	if as.Capacity < 0 {
		return nil, fmt.Errorf("negative capacity %v", as.Capacity)
	}
	t, ok := techs[as.Technology]
	if !ok {
		return nil, fmt.Errorf("unknown technology %q", as.Technology)
	}
	var a asset.Asset
	switch tech := t.(type) {
	case *technology.GeneratorTechnology:
		a = asset.NewGenerator(as.Name, tech, as.Capacity)
	case *technology.StorageTechnology:
		if as.HoursStorage <= 0 {
			return nil, errors.New("storage needs positive hours_storage")
		}
		var opt asset.StorageOptimiser
		if opts.Storage != nil {
			opt = opts.Storage()
		}
		s := asset.NewStorage(as.Name, tech, as.Capacity, as.HoursStorage, opt)
		if as.ChargeCapacity > 0 {
			s.ChargeCapacity = as.ChargeCapacity
		}
		a = s
	case *technology.PassiveTechnology:
		if as.Resource == nil {
			return nil, errors.New("passive asset needs a resource profile")
		}
		res, err := fl.profile(*as.Resource, opts)
		if err != nil {
			return nil, fmt.Errorf("resource: %w", err)
		}
		p := asset.NewPassiveGenerator(as.Name, tech, as.Capacity, res)
		p.AsFactor = as.AsFactor
		if as.Constraint != nil {
			model, err := fl.profile(*as.Constraint, opts)
			if err != nil {
				return nil, fmt.Errorf("constraint: %w", err)
			}
			c := &capacity.Constraint{Model: model, AsFactor: as.ConstraintAsFactor, Of: p}
			p.Constraint = c
			fl.Constraints = append(fl.Constraints, c)
		}
		a = p
	}
	if f := as.CappableFraction; f != nil {
		if *f < 0 || *f > 1 {
			return nil, fmt.Errorf("cappable_fraction %v outside [0, 1]", *f)
		}
		if cf, ok := a.(interface{ SetCappableFraction(float64) }); ok {
			cf.SetCappableFraction(*f)
		}
	}
	return a, nil
}

// profile builds a resource. Stochastic profiles are registered as
// refreshers.
func (fl *Fleet) profile(ps ProfileSpec, opts BuildOptions) (demand.Resource, error) {
	switch {
	case ps.File != "":
		s, err := LoadSeries(resolve(opts.Dir, ps.File), SeriesOptions{Column: ps.Column})
		if err != nil {
			return nil, err
		}
		return scaled(s.Values, ps.Scale), nil
	case len(ps.Samples) > 0:
		samples := make([][]float64, len(ps.Samples))
		for i, f := range ps.Samples {
			s, err := LoadSeries(resolve(opts.Dir, f), SeriesOptions{Column: ps.Column})
			if err != nil {
				return nil, err
			}
			samples[i] = s.Values
		}
		cc, err := demand.NewChoiceCurve(samples, ps.Scale, ps.Seed+opts.SeedOffset)
		if err != nil {
			return nil, err
		}
		cc.Noise = ps.Noise
		fl.Refreshers = append(fl.Refreshers, cc)
		return cc, nil
	case len(ps.Values) > 0:
		return scaled(ps.Values, ps.Scale), nil
	case ps.Constant != nil:
		return demand.Constant(*ps.Constant, opts.Hours), nil
	default:
		return nil, errors.New("empty profile")
	}
}

func scaled(values []float64, scale float64) demand.StaticResource {
	out := make(demand.StaticResource, len(values))
	copy(out, values)
	if scale != 0 {
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}

func resolve(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
