// Package quota owns the durable per-user rewrite quota ledger.
//
// The ledger is the only durable state mutated before generation begins,
// which is why it is also the state that must be compensated when
// generation fails. Two rules keep it correct under arbitrary concurrent
// callers:
//
//   - Consume is a single conditional update executed inside the store
//     ("increment only if used < limit"), never a read followed by a
//     write. Two simultaneous requests racing for the last slot resolve
//     to exactly one success.
//   - Refund is best-effort. A failed refund is logged and swallowed: it
//     costs the user one quota unit, which is a better failure mode than
//     surfacing a second error on top of the one that triggered the
//     refund.
//
// The SQLite backend is the production implementation; the memory backend
// serves tests.
package quota
