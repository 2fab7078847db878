package config

import (
	"errors"
	"fmt"

	"github.com/kilianp07/gridmerit/core/dispatch"
	"github.com/kilianp07/gridmerit/core/factory"
	"github.com/kilianp07/gridmerit/core/optimiser"
)

// ScenarioConfig selects the inputs and the planner of a scenario.
type ScenarioConfig struct {
	Name          string `json:"name"`
	Year          int    `json:"year"`
	DemandFile    string `json:"demand_file"`
	CatalogueFile string `json:"catalogue_file"`
	// Periods is the duration domain of the demand, 8760 by default.
	Periods int `json:"periods"`
	// DemandSamples, when set, are redrawn per Monte-Carlo iteration in
	// place of DemandFile.
	DemandSamples []string             `json:"demand_samples"`
	DemandScale   float64              `json:"demand_scale"`
	DemandNoise   float64              `json:"demand_noise"`
	Seed          uint64               `json:"seed"`
	Optimiser     factory.ModuleConfig `json:"optimiser"`
	CapLimit      float64              `json:"cap_limit"`
	// CapPriority orders the assets displaced by the capper. Unlisted assets
	// follow in catalogue order.
	CapPriority []string         `json:"cap_priority"`
	Dispatch    dispatch.Options `json:"dispatch"`
}

// SetDefaults applies the defaults.
func (c *ScenarioConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Periods == 0 {
		c.Periods = 8760
	}
	if c.Optimiser.Type == "" {
		c.Optimiser.Type = "merit_order"
	}
	if c.Dispatch.Scenario == "" {
		c.Dispatch.Scenario = c.Name
	}
}

// Validate checks mandatory fields.
func (c ScenarioConfig) Validate() error {
	if c.DemandFile == "" && len(c.DemandSamples) == 0 {
		return errors.New("demand_file or demand_samples is required")
	}
	if c.CatalogueFile == "" {
		return errors.New("catalogue_file is required")
	}
	if c.Periods <= 0 {
		return fmt.Errorf("periods must be positive, got %d", c.Periods)
	}
	if c.CapLimit < 0 {
		return errors.New("cap_limit must not be negative")
	}
	if c.DemandNoise < 0 {
		return errors.New("demand_noise must not be negative")
	}
	if _, err := optimiser.Registry.Create(c.Optimiser); err != nil {
		return fmt.Errorf("optimiser: %w", err)
	}
	return nil
}

// MonteCarloConfig sizes a Monte-Carlo run.
type MonteCarloConfig struct {
	Iterations int `json:"iterations"`
	Workers    int `json:"workers"`
}

// SetDefaults applies the defaults.
func (c *MonteCarloConfig) SetDefaults() {
	if c.Iterations == 0 {
		c.Iterations = 100
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}

// Validate checks the sizes.
func (c MonteCarloConfig) Validate() error {
	if c.Iterations < 0 || c.Workers < 0 {
		return errors.New("iterations and workers must not be negative")
	}
	return nil
}
