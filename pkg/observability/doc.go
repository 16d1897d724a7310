// Package observability provides structured logging, Prometheus metrics,
// optional OpenTelemetry export, health checks, and graceful shutdown for
// the Relato server processes.
//
// The logger is a thin wrapper over log/slog emitting JSON. Request-scoped
// fields (request id, user id) travel through the context and are folded
// into log lines by FromContext.
package observability
