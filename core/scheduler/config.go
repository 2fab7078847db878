package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the storage re-planning parameters loaded from configuration.
type Config struct {
	Start         time.Time   `json:"start" yaml:"start" koanf:"start"`
	IntervalHours int         `json:"interval_hours" yaml:"interval_hours" koanf:"interval_hours"`
	WindowHours   int         `json:"window_hours" yaml:"window_hours" koanf:"window_hours"`
	CustomEvents  []time.Time `json:"custom_events" yaml:"custom_events" koanf:"custom_events"`
	// File names a JSON or YAML schedule merged in by WithFile.
	File string `json:"file" yaml:"-" koanf:"file"`
}

// SetDefaults fills a daily schedule with a one-day look-ahead.
func (c *Config) SetDefaults() {
	if c.IntervalHours == 0 {
		c.IntervalHours = 24
	}
	if c.WindowHours == 0 {
		c.WindowHours = 24
	}
}

// Validate checks the interval and window.
func (c Config) Validate() error {
	if c.IntervalHours <= 0 {
		return errors.New("interval_hours must be positive")
	}
	if c.WindowHours < 0 {
		return errors.New("window_hours must not be negative")
	}
	return nil
}

// NewOptimiser builds a peak-shave optimiser from the config. A zero Start is
// replaced by fallback, usually the first timestamp of the demand.
func (c Config) NewOptimiser(fallback time.Time) *PeakShaveOptimiser {
	start := c.Start
	if start.IsZero() {
		start = fallback
	}
	return &PeakShaveOptimiser{
		Scheduler:  New(start, time.Duration(c.IntervalHours)*time.Hour, c.CustomEvents...),
		Forecaster: PerfectForecaster{Window: time.Duration(c.WindowHours) * time.Hour},
	}
}

// WithFile merges the schedule file into c. Inline fields win; custom events
// of both are kept.
func (c Config) WithFile() (Config, error) {
	if c.File == "" {
		return c, nil
	}
	fc, err := LoadConfig(c.File)
	if err != nil {
		return c, fmt.Errorf("schedule %s: %w", c.File, err)
	}
	if c.Start.IsZero() {
		c.Start = fc.Start
	}
	if c.IntervalHours == 0 {
		c.IntervalHours = fc.IntervalHours
	}
	if c.WindowHours == 0 {
		c.WindowHours = fc.WindowHours
	}
	c.CustomEvents = append(append([]time.Time(nil), fc.CustomEvents...), c.CustomEvents...)
	return c, nil
}

// LoadConfig loads Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return DecodeConfig(f, strings.TrimPrefix(filepath.Ext(path), "."))
}

// DecodeConfig reads a Config in the given format, "yaml" or "json".
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	var err error
	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&cfg)
	case "json":
		err = json.NewDecoder(r).Decode(&cfg)
	default:
		return cfg, fmt.Errorf("unsupported schedule format %q", format)
	}
	return cfg, err
}
