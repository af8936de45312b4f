package quota

import (
	"context"
	"time"
)

// ConsumeResult reports the outcome of an atomic consume attempt.
type ConsumeResult struct {
	// OK is true when a quota slot was consumed.
	OK bool

	// Used is the user's used-counter after the attempt. When OK is
	// false it is the counter that blocked admission.
	Used int
}

// Snapshot is a non-atomic view of a user's ledger entry, suitable for
// display only. Admission decisions must go through Consume.
type Snapshot struct {
	Used    int
	ResetAt time.Time
}

// Ledger is the durable quota store.
type Ledger interface {
	// Consume atomically increments the user's used-counter if and only
	// if used < limit. The check and increment are one indivisible
	// operation at the store level.
	Consume(ctx context.Context, userID string, limit int) (ConsumeResult, error)

	// Refund decrements the user's used-counter by one, floored at zero.
	// Callers treat failures as log-and-continue.
	Refund(ctx context.Context, userID string) error

	// Read returns a display snapshot of the user's entry.
	Read(ctx context.Context, userID string) (Snapshot, error)

	// ResetCycle zeroes every entry whose reset timestamp has passed and
	// advances it to the next cycle boundary. Returns the number of
	// entries reset. Invoked by the scheduler, never by request-path
	// code.
	ResetCycle(ctx context.Context, now time.Time) (int, error)

	// Close releases the underlying store.
	Close() error
}

// NextCycleBoundary returns the start of the calendar month after now, in
// UTC. The quota cycle is monthly.
func NextCycleBoundary(now time.Time) time.Time {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return monthStart.AddDate(0, 1, 0)
}
