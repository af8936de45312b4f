// Package handlers implements the HTTP surface: the streaming rewrite
// endpoint, the quota snapshot, rewrite history, and health.
//
// Admission rejections map to synchronous JSON error responses; once
// the SSE stream is open every failure travels in-band as an error
// event, because the response status is already on the wire.
package handlers
