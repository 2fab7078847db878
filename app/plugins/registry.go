// Package plugins registers the run store backends selectable from the
// logging configuration.
package plugins

import (
	"github.com/kilianp07/gridmerit/config"
	dispatchlog "github.com/kilianp07/gridmerit/core/dispatch/logging"
	"github.com/kilianp07/gridmerit/core/factory"
)

// RunStores builds dispatch run stores by backend name.
var RunStores = factory.NewRegistry[dispatchlog.RunStore]()

// NewRunStore builds the store selected by cfg.Backend.
func NewRunStore(cfg config.LoggingConfig) (dispatchlog.RunStore, error) {
	conf := map[string]any{
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
	}
	return RunStores.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: conf})
}
