package metrics

import (
	"fmt"

	"github.com/kilianp07/gridmerit/core/factory"
)

// Config selects the sinks dispatch runs report to.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" koanf:"sinks"`
	// PromAddr serves /metrics when not empty.
	PromAddr string `json:"prom_addr" koanf:"prom_addr"`
}

// Validate rejects sinks without a type. Unknown types are only detected by
// NewMetricsSink since infra packages register them.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sink %d: type is required", i)
		}
	}
	return nil
}
