package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmerit/config"
	dispatchlog "github.com/kilianp07/gridmerit/core/dispatch/logging"
	"github.com/kilianp07/gridmerit/core/model"
)

const testCatalogue = `
commodities:
  - name: gas
    price: 8
technologies:
  - name: base
    resource_class: generator
    fixed_om: 100
    variable_om: 1
  - name: peak
    resource_class: generator
    fixed_om: 10
    variable_om: 20
  - name: battery
    resource_class: storage
    round_trip_efficiency: 0.9
assets:
  - name: bess
    technology: battery
    capacity: 1
    hours_storage: 2
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demand.csv"), []byte("demand\n10\n8\n6\n4\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogue.yaml"), []byte(testCatalogue), 0o644))
	cfg := &config.Config{
		Scenario: config.ScenarioConfig{
			Name:          "test",
			DemandFile:    filepath.Join(dir, "demand.csv"),
			CatalogueFile: filepath.Join(dir, "catalogue.yaml"),
			Periods:       4,
		},
		Logging: config.LoggingConfig{Level: "error", Path: filepath.Join(dir, "runs.jsonl")},
	}
	cfg.Scenario.Dispatch.AnnualCosts = true
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestService_Optimise(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	_, groups, err := svc.Optimise()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, model.KindStorage.String(), groups[0].Name)
	assert.Equal(t, model.KindGenerator.String(), groups[1].Name)
	assert.InDelta(t, 10.0, groups[1].Deployment.TotalCapacity(), 1e-9)
	assert.NoError(t, groups[1].Deployment.Validate())
}

func TestService_DispatchPersistsRun(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	_, res, log, err := svc.Dispatch(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "test", res.Summary.Scenario)
	assert.InDelta(t, 0.0, log.Unserved(), 1e-9)
	assert.Contains(t, log.Order, "bess")

	recs, err := svc.Store.Query(context.Background(), dispatchlog.RunQuery{Scenario: "test"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.RunID, recs[0].RunID)
	assert.InDelta(t, res.Summary.TotalCost, recs[0].TotalCost, 1e-9)
}

func TestService_MonteCarlo(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	rep, err := svc.MonteCarlo(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 3)
	for _, o := range rep.Outcomes {
		assert.InDelta(t, rep.MeanCost, o.TotalCost, 1e-9)
	}
	assert.InDelta(t, 0.0, rep.StdCost, 1e-9)
}

func TestService_MissingInputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scenario.CatalogueFile = filepath.Join(t.TempDir(), "none.yaml")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestCapOrder(t *testing.T) {
	cfg := testConfig(t)
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()
	m, err := svc.Scenario(0)
	require.NoError(t, err)
	assets := m.Portfolio.Assets
	assert.Equal(t, assets, capOrder(assets, []string{"ghost"}))
	assert.Equal(t, assets, capOrder(assets, []string{"bess"}))
}
