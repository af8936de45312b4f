// Package middleware provides the HTTP middleware chain: request IDs,
// caller identity, request logging, and panic recovery.
//
// Order matters: recovery wraps everything, logging sees the final
// status, the request ID is available to both, and identity runs last
// so rejected anonymous requests are still logged with their ID.
package middleware
