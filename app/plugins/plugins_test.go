package plugins

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridmerit/config"
	dispatchlog "github.com/kilianp07/gridmerit/core/dispatch/logging"
)

func TestNewRunStore(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"jsonl", "rotating"} {
		t.Run(backend, func(t *testing.T) {
			st, err := NewRunStore(config.LoggingConfig{Backend: backend, Path: filepath.Join(dir, backend+".jsonl"), MaxSizeMB: 1})
			require.NoError(t, err)
			defer st.Close()

			rec := dispatchlog.RunRecord{RunID: "r1", Timestamp: time.Now(), Scenario: "base"}
			require.NoError(t, st.Append(context.Background(), rec))
			got, err := st.Query(context.Background(), dispatchlog.RunQuery{Scenario: "base"})
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "r1", got[0].RunID)
		})
	}

	st, err := NewRunStore(config.LoggingConfig{Backend: "none"})
	require.NoError(t, err)
	assert.IsType(t, dispatchlog.NopStore{}, st)

	_, err = NewRunStore(config.LoggingConfig{Backend: "sqlite"})
	assert.Error(t, err)
}
