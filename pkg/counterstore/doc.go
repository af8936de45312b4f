// Package counterstore provides a narrow client for the shared
// key-value/counter service backing the response cache, the global
// admission counter, and per-user rate limit windows.
//
// Two implementations are provided:
//
//   - RedisStore: production implementation backed by Redis. All state is
//     shared across every running instance, which is what makes the
//     admission decisions consistent under horizontal scaling.
//   - MemoryStore: in-process implementation with the same contract, used
//     in tests and Redis-less development.
//
// The contract deliberately distinguishes "key absent" from "store
// unreachable". Get returns found=false with a nil error for a missing
// key; any transport or server failure is reported as an error wrapping
// ErrUnavailable. Callers decide fail-open versus fail-closed per call
// site, so collapsing the two cases would silently change admission
// behavior.
package counterstore
