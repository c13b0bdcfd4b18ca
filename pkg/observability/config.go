// Package observability wires structured logging, OpenTelemetry tracing, and
// planner metrics behind a single Init call. Without an OTLP endpoint the
// providers are no-ops with zero export overhead.
package observability

import "log/slog"

// Config controls telemetry initialization.
type Config struct {
	// ServiceName identifies the process in traces, metrics, and logs.
	ServiceName string

	// ServiceVersion is attached to the OTel resource when non-empty.
	ServiceVersion string

	// Environment is the deployment environment label (dev, prod, ...).
	Environment string

	// OTLPEndpoint is the host:port of an OTLP gRPC collector. Empty
	// disables export entirely.
	OTLPEndpoint string

	// OTLPInsecure disables transport security for the OTLP connection.
	OTLPInsecure bool

	// LogLevel is the minimum level emitted by the logger.
	LogLevel slog.Level

	// LogJSON switches the log handler from text to JSON.
	LogJSON bool
}
