// Package config loads the gridmerit configuration file with koanf. Values
// may be overridden from the environment: GRID_SCENARIO__YEAR=2030 sets
// scenario.year.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gridmerit/core/metrics"
	"github.com/kilianp07/gridmerit/core/scheduler"
	"github.com/kilianp07/gridmerit/infra/mqtt"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "GRID_"

type Config struct {
	Scenario   ScenarioConfig   `json:"scenario"`
	MonteCarlo MonteCarloConfig `json:"montecarlo"`
	Storage    scheduler.Config `json:"storage"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    metrics.Config   `json:"metrics"`
	MQTT       mqtt.Config      `json:"mqtt"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))
	storage, err := cfg.Storage.WithFile()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	cfg.Storage = storage
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Scenario.SetDefaults()
	c.MonteCarlo.SetDefaults()
	c.Storage.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section. MQTT is only checked when a broker is set.
func (c Config) Validate() error {
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if err := c.MonteCarlo.Validate(); err != nil {
		return fmt.Errorf("montecarlo: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if c.MQTT.Broker != "" {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// resolve makes input file paths relative to the config file.
func (c *Config) resolve(dir string) {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Scenario.DemandFile = rel(c.Scenario.DemandFile)
	c.Scenario.CatalogueFile = rel(c.Scenario.CatalogueFile)
	c.Storage.File = rel(c.Storage.File)
	for i, s := range c.Scenario.DemandSamples {
		c.Scenario.DemandSamples[i] = rel(s)
	}
}
