// Package history persists completed rewrite records and prunes them per
// plan retention.
//
// Records are written once by the execution engine at the end of a
// successful stream and never mutated. Each record carries its expiry,
// computed from the owner's plan retention at write time, so the stale
// sweep is a single timestamp comparison regardless of later plan
// changes.
package history
