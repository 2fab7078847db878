package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/gridmerit/core/factory"
	coremetrics "github.com/kilianp07/gridmerit/core/metrics"
)

// InfluxConfig is the plugin configuration of the influx sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// SkipHealthCheck builds the sink without pinging the server.
	SkipHealthCheck bool `json:"skip_health_check"`
}

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.SkipHealthCheck {
			return NewInfluxSink(c.URL, c.Token, c.Org, c.Bucket), nil
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
