package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecord_JSON(t *testing.T) {
	rec := RunRecord{
		RunID:     "run-1",
		Timestamp: time.Unix(0, 0),
		Order:     []string{"wind", "ccgt"},
		Energy:    map[string]float64{"wind": 10, "ccgt": 5},
		TotalCost: 100,
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, k := range []string{"run_id", "timestamp", "order", "energy", "total_cost", "unserved", "peak_residual"} {
		assert.Contains(t, m, k)
	}
	assert.NotContains(t, m, "error")
}

func TestRunQuery_Match(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := RunRecord{Timestamp: now, Scenario: "base", Energy: map[string]float64{"ccgt": 1}}
	tests := []struct {
		name string
		q    RunQuery
		want bool
	}{
		{"empty", RunQuery{}, true},
		{"before start", RunQuery{Start: now.Add(time.Hour)}, false},
		{"after end", RunQuery{End: now.Add(-time.Hour)}, false},
		{"scenario", RunQuery{Scenario: "base"}, true},
		{"other scenario", RunQuery{Scenario: "high"}, false},
		{"asset", RunQuery{Asset: "ccgt"}, true},
		{"missing asset", RunQuery{Asset: "wind"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Match(rec))
		})
	}
}

func TestJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, RunRecord{RunID: "a", Scenario: "base"}))
	require.NoError(t, store.Append(ctx, RunRecord{RunID: "b", Scenario: "high"}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	all, err := store.Query(ctx, RunQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	high, err := store.Query(ctx, RunQuery{Scenario: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "b", high[0].RunID)
	assert.NoError(t, store.Close())

	var nop NopStore
	assert.NoError(t, nop.Append(ctx, RunRecord{}))
}
