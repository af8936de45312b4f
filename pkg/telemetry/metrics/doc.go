// Package metrics provides Prometheus instrumentation for the rewrite
// pipeline.
//
// The Collector owns a private registry and groups metrics by pipeline
// stage: admission decisions, result cache traffic, and backend stream
// execution. Every recording method is safe for concurrent use and is a
// no-op when metrics are disabled.
package metrics
