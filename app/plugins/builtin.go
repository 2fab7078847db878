package plugins

import (
	"github.com/kilianp07/gridmerit/config"
	dispatchlog "github.com/kilianp07/gridmerit/core/dispatch/logging"
	"github.com/kilianp07/gridmerit/core/factory"
)

func init() {
	RunStores.MustRegister("jsonl", func(conf map[string]any) (dispatchlog.RunStore, error) {
		var lc config.LoggingConfig
		if err := factory.Decode(conf, &lc); err != nil {
			return nil, err
		}
		return dispatchlog.NewJSONLStore(lc.Path)
	})
	RunStores.MustRegister("rotating", func(conf map[string]any) (dispatchlog.RunStore, error) {
		var lc config.LoggingConfig
		if err := factory.Decode(conf, &lc); err != nil {
			return nil, err
		}
		return dispatchlog.NewRotatingJSONLStore(lc.Path, lc.MaxSizeMB, lc.MaxBackups, lc.MaxAgeDays)
	})
	RunStores.MustRegister("none", func(map[string]any) (dispatchlog.RunStore, error) {
		return dispatchlog.NopStore{}, nil
	})
}
