// Package metrics defines the sinks that record dispatch summaries, ranked
// deployments and Monte-Carlo iterations. Implementations such as PromSink
// and InfluxSink live in infra/metrics and register themselves with the
// factory; NewMetricsSink returns a MultiSink when several are configured.
package metrics
