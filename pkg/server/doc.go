// Package server assembles the HTTP service: routes, middleware chain,
// and graceful lifecycle.
//
// Routes:
//
//	POST   /v1/rewrite        streaming rewrite (SSE)
//	GET    /v1/quota          quota snapshot
//	GET    /v1/rewrites       history list
//	GET    /v1/rewrites/{id}  one record
//	DELETE /v1/rewrites/{id}  remove one record
//	GET    /healthz           liveness
//	GET    /metrics           Prometheus exposition (when enabled)
//
// The middleware chain, outermost first: recovery, request ID, logging,
// then per-route identity. /healthz and /metrics skip identity.
package server
