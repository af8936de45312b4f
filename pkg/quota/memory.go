package quota

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLedger implements Ledger with in-process state. All data is lost
// when the process exits; it exists for tests and local development.
//
// MemoryLedger is thread-safe. The mutex makes each Consume call
// indivisible, matching the atomicity the SQLite backend gets from its
// conditional update.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]*memoryLedgerEntry
}

type memoryLedgerEntry struct {
	used    int
	resetAt time.Time
}

// NewMemoryLedger creates an empty in-process ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]*memoryLedgerEntry)}
}

func (l *MemoryLedger) entry(userID string) *memoryLedgerEntry {
	e, ok := l.entries[userID]
	if !ok {
		e = &memoryLedgerEntry{resetAt: NextCycleBoundary(time.Now())}
		l.entries[userID] = e
	}
	return e
}

// Consume atomically consumes one quota slot if used < limit.
func (l *MemoryLedger) Consume(ctx context.Context, userID string, limit int) (ConsumeResult, error) {
	if userID == "" {
		return ConsumeResult{}, fmt.Errorf("user id cannot be empty")
	}
	if limit <= 0 {
		return ConsumeResult{}, fmt.Errorf("limit must be positive, got %d", limit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(userID)
	if e.used >= limit {
		return ConsumeResult{OK: false, Used: e.used}, nil
	}
	e.used++
	return ConsumeResult{OK: true, Used: e.used}, nil
}

// Refund decrements the user's used-counter by one, floored at zero.
func (l *MemoryLedger) Refund(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id cannot be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(userID)
	if e.used > 0 {
		e.used--
	}
	return nil
}

// Read returns a display snapshot of the user's entry.
func (l *MemoryLedger) Read(ctx context.Context, userID string) (Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(userID)
	return Snapshot{Used: e.used, ResetAt: e.resetAt}, nil
}

// ResetCycle zeroes every entry due for reset.
func (l *MemoryLedger) ResetCycle(ctx context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := NextCycleBoundary(now)
	reset := 0
	for _, e := range l.entries {
		if !e.resetAt.After(now) {
			e.used = 0
			e.resetAt = next
			reset++
		}
	}
	return reset, nil
}

// Close is a no-op for the memory ledger.
func (l *MemoryLedger) Close() error {
	return nil
}
