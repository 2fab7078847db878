// Package infra contains technical adapters: file data sources, the zerolog
// logger, metrics exporters and the MQTT publisher. These packages depend
// only on the interfaces defined in the core packages.
package infra
