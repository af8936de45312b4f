// Package admission decides whether a rewrite request may proceed to
// generation.
//
// Each request walks four strictly ordered steps, short-circuiting on
// the first rejection: the global daily cap (fail-closed), the result
// cache lookup (fail-open), the durable quota consume, and the
// per-user fixed-window rate limit (fail-closed). A cache hit at step
// two skips the remaining steps entirely; a replayed result costs the
// user nothing.
//
// The fail-open versus fail-closed choice is a declared property of
// each step, not a side effect of error handling: the cap and rate
// limit protect the backend and the cost ceiling, so they reject when
// the counter store is down, while the cache is an optimization and
// degrades to a miss.
package admission
