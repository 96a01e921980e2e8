// Package observability wires structured logging, OpenTelemetry tracing and
// metrics for every listkit entry point (CLI, MCP server, metrics endpoint).
package observability

import "log/slog"

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot CLI command.
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server.
	ModeMCP AppMode = "mcp"
	// ModeMetrics is the long-running metrics endpoint.
	ModeMetrics AppMode = "metrics"
)

const (
	defaultServiceName        = "listkit"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability settings.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment, e.g. "dev".
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are extra gRPC metadata headers for the exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool

	// SampleRatio is the root trace sampling ratio. Zero samples everything.
	SampleRatio float64

	// LogLevel is the minimum slog level.
	LogLevel slog.Level

	// LogJSON switches the log output to JSON.
	LogJSON bool

	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config that needs no collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
