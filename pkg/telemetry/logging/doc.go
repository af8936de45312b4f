// Package logging configures structured logging on top of log/slog.
//
// New builds a *slog.Logger from the service configuration (level,
// format, source annotation); the context helpers carry per-request
// fields (request ID, user, model) through the pipeline so every log
// line of one rewrite can be correlated.
package logging
