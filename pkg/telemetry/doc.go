// Package telemetry groups the observability packages for Forge.
//
//   - logging: structured slog logging with request-scoped context
//   - metrics: Prometheus metrics for admission, cache, and streaming
//
// Both packages are wired once at startup and passed down as
// collaborators; nothing in this tree reads global state besides the
// slog default logger.
package telemetry
