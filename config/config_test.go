package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `scenario:
  name: "base"
  year: 2030
  demand_file: "demand.csv"
  catalogue_file: "/data/catalogue.yaml"
  cap_limit: 120
  cap_priority: ["coal"]
  optimiser:
    type: "srmc"
    conf:
      group_order: ["generator", "storage"]
  dispatch:
    annual_costs: true
    economic: true
montecarlo:
  iterations: 50
  workers: 4
storage:
  interval_hours: 12
  window_hours: 6
logging:
  level: "debug"
  backend: "rotating"
  path: "runs.jsonl"
metrics:
  prom_addr: ":9100"
  sinks:
    - type: "nop"
mqtt:
  broker: "tcp://localhost:1883"
  qos: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"scenario.name", cfg.Scenario.Name, "base"},
		{"scenario.year", cfg.Scenario.Year, 2030},
		{"demand_file", cfg.Scenario.DemandFile, filepath.Join(dir, "demand.csv")},
		{"catalogue_file", cfg.Scenario.CatalogueFile, "/data/catalogue.yaml"},
		{"periods", cfg.Scenario.Periods, 8760},
		{"cap_limit", cfg.Scenario.CapLimit, 120.0},
		{"optimiser", cfg.Scenario.Optimiser.Type, "srmc"},
		{"dispatch.annual_costs", cfg.Scenario.Dispatch.AnnualCosts, true},
		{"dispatch.economic", cfg.Scenario.Dispatch.Economic, true},
		{"dispatch.scenario", cfg.Scenario.Dispatch.Scenario, "base"},
		{"iterations", cfg.MonteCarlo.Iterations, 50},
		{"workers", cfg.MonteCarlo.Workers, 4},
		{"interval_hours", cfg.Storage.IntervalHours, 12},
		{"window_hours", cfg.Storage.WindowHours, 6},
		{"level", cfg.Logging.Level, "debug"},
		{"max_size_mb", cfg.Logging.MaxSizeMB, 10},
		{"prom_addr", cfg.Metrics.PromAddr, ":9100"},
		{"sink", cfg.Metrics.Sinks[0].Type, "nop"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"mqtt.topic_root", cfg.MQTT.TopicRoot, "gridmerit"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}
	assert.Equal(t, []string{"coal"}, cfg.Scenario.CapPriority)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"scenario":{"demand_file":"d.json","catalogue_file":"c.yaml","year":2025}}`)
	t.Setenv("GRID_SCENARIO__YEAR", "2040")
	t.Setenv("GRID_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2040, cfg.Scenario.Year)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "merit_order", cfg.Scenario.Optimiser.Type)
	assert.Empty(t, cfg.MQTT.TopicRoot, "mqtt left untouched without a broker")
}

func TestLoadStorageScheduleFile(t *testing.T) {
	path := writeConfig(t, "config.yaml", `scenario:
  demand_file: d.json
  catalogue_file: c.yaml
storage:
  window_hours: 12
  file: schedule.yaml
`)
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schedule.yaml"),
		[]byte("interval_hours: 6\nwindow_hours: 48\ncustom_events:\n  - 2030-01-05T00:00:00Z\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schedule.yaml"), cfg.Storage.File)
	assert.Equal(t, 6, cfg.Storage.IntervalHours)
	assert.Equal(t, 12, cfg.Storage.WindowHours)
	assert.Len(t, cfg.Storage.CustomEvents, 1)

	require.NoError(t, os.Remove(filepath.Join(dir, "schedule.yaml")))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"missing demand":  `{"scenario":{"catalogue_file":"c.yaml"}}`,
		"unknown planner": `{"scenario":{"demand_file":"d","catalogue_file":"c","optimiser":{"type":"milp"}}}`,
		"bad backend":     `{"scenario":{"demand_file":"d","catalogue_file":"c"},"logging":{"backend":"sqlite"}}`,
		"bad level":       `{"scenario":{"demand_file":"d","catalogue_file":"c"},"logging":{"level":"loud"}}`,
		"bad qos":         `{"scenario":{"demand_file":"d","catalogue_file":"c"},"mqtt":{"broker":"tcp://x:1883","qos":3}}`,
		"negative cap":    `{"scenario":{"demand_file":"d","catalogue_file":"c","cap_limit":-1}}`,
		"untyped sink":    `{"scenario":{"demand_file":"d","catalogue_file":"c"},"metrics":{"sinks":[{"conf":{"url":"x"}}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.json", body))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err)
}

func TestLoggingConfigDefaults(t *testing.T) {
	var c LoggingConfig
	c.SetDefaults()
	assert.Equal(t, "info", c.Level)
	assert.Equal(t, "jsonl", c.Backend)
	assert.Equal(t, "runs.jsonl", c.Path)
	assert.NoError(t, c.Validate())

	c = LoggingConfig{Backend: "none"}
	c.SetDefaults()
	assert.Empty(t, c.Path)
	assert.NoError(t, c.Validate())
}
