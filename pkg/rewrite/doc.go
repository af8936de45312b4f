// Package rewrite implements the rewrite execution core: request types,
// prompt construction, the streamed-result parser, and the streaming
// execution engine.
//
// The engine runs a strict two-phase protocol per execution. The live
// phase forwards backend chunks to the caller as they arrive; this is
// the only latency-sensitive path in the system. The bookkeeping phase
// runs only after the caller-facing stream is signalled complete: parse
// the accumulated text into variations, persist the record, populate the
// result cache. Any outcome other than bookkeeping-eligible success
// triggers exactly one quota compensation.
package rewrite
