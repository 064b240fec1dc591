// Package telemetry groups the engine's observability concerns:
// structured logging with access-token redaction and Prometheus
// metrics.
package telemetry
