package quota

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// ledgerFactories lets every contract test run against both backends.
func ledgerFactories(t *testing.T) map[string]func(t *testing.T) Ledger {
	return map[string]func(t *testing.T) Ledger{
		"memory": func(t *testing.T) Ledger {
			return NewMemoryLedger()
		},
		"sqlite": func(t *testing.T) Ledger {
			dbPath := filepath.Join(t.TempDir(), "quota.db")
			ledger, err := NewSQLiteLedger(dbPath)
			if err != nil {
				t.Fatalf("Failed to create SQLite ledger: %v", err)
			}
			t.Cleanup(func() { ledger.Close() })
			return ledger
		},
	}
}

func TestLedger_ConsumeUpToLimit(t *testing.T) {
	for name, factory := range ledgerFactories(t) {
		t.Run(name, func(t *testing.T) {
			ledger := factory(t)
			ctx := context.Background()

			for i := 1; i <= 5; i++ {
				res, err := ledger.Consume(ctx, "u1", 5)
				if err != nil {
					t.Fatalf("Consume %d failed: %v", i, err)
				}
				if !res.OK {
					t.Fatalf("Consume %d rejected unexpectedly", i)
				}
				if res.Used != i {
					t.Errorf("Expected used=%d, got %d", i, res.Used)
				}
			}

			// Sixth consume must be rejected without mutating state
			res, err := ledger.Consume(ctx, "u1", 5)
			if err != nil {
				t.Fatalf("Consume failed: %v", err)
			}
			if res.OK {
				t.Error("Consume over limit was allowed")
			}
			if res.Used != 5 {
				t.Errorf("Expected used=5 after rejection, got %d", res.Used)
			}

			snap, _ := ledger.Read(ctx, "u1")
			if snap.Used != 5 {
				t.Errorf("Expected snapshot used=5, got %d", snap.Used)
			}
		})
	}
}

func TestLedger_ConsumeAtomicUnderConcurrency(t *testing.T) {
	for name, factory := range ledgerFactories(t) {
		t.Run(name, func(t *testing.T) {
			ledger := factory(t)
			ctx := context.Background()

			// limit=5, used=4: two racing consumes must yield exactly one
			// success and a final used of 5.
			for i := 0; i < 4; i++ {
				if _, err := ledger.Consume(ctx, "u1", 5); err != nil {
					t.Fatalf("Setup consume failed: %v", err)
				}
			}

			results := make(chan bool, 2)
			var wg sync.WaitGroup
			wg.Add(2)
			for i := 0; i < 2; i++ {
				go func() {
					defer wg.Done()
					res, err := ledger.Consume(ctx, "u1", 5)
					if err != nil {
						t.Errorf("Concurrent consume failed: %v", err)
						results <- false
						return
					}
					results <- res.OK
				}()
			}
			wg.Wait()
			close(results)

			successes := 0
			for ok := range results {
				if ok {
					successes++
				}
			}
			if successes != 1 {
				t.Errorf("Expected exactly 1 success, got %d", successes)
			}

			snap, _ := ledger.Read(ctx, "u1")
			if snap.Used != 5 {
				t.Errorf("Expected final used=5, got %d", snap.Used)
			}
		})
	}
}

func TestLedger_Refund(t *testing.T) {
	for name, factory := range ledgerFactories(t) {
		t.Run(name, func(t *testing.T) {
			ledger := factory(t)
			ctx := context.Background()

			if _, err := ledger.Consume(ctx, "u1", 5); err != nil {
				t.Fatalf("Consume failed: %v", err)
			}
			if err := ledger.Refund(ctx, "u1"); err != nil {
				t.Fatalf("Refund failed: %v", err)
			}

			snap, _ := ledger.Read(ctx, "u1")
			if snap.Used != 0 {
				t.Errorf("Expected used=0 after refund, got %d", snap.Used)
			}

			// Refund never drives the counter negative
			if err := ledger.Refund(ctx, "u1"); err != nil {
				t.Fatalf("Refund at zero failed: %v", err)
			}
			snap, _ = ledger.Read(ctx, "u1")
			if snap.Used != 0 {
				t.Errorf("Expected used=0 after floor refund, got %d", snap.Used)
			}
		})
	}
}

func TestLedger_ResetCycle(t *testing.T) {
	for name, factory := range ledgerFactories(t) {
		t.Run(name, func(t *testing.T) {
			ledger := factory(t)
			ctx := context.Background()

			if _, err := ledger.Consume(ctx, "u1", 5); err != nil {
				t.Fatalf("Consume failed: %v", err)
			}
			if _, err := ledger.Consume(ctx, "u2", 5); err != nil {
				t.Fatalf("Consume failed: %v", err)
			}

			// Before the boundary, nothing is due
			reset, err := ledger.ResetCycle(ctx, time.Now())
			if err != nil {
				t.Fatalf("ResetCycle failed: %v", err)
			}
			if reset != 0 {
				t.Errorf("Expected 0 entries reset before boundary, got %d", reset)
			}

			// Past the boundary, both entries reset and usage returns to 0
			future := NextCycleBoundary(time.Now()).Add(time.Hour)
			reset, err = ledger.ResetCycle(ctx, future)
			if err != nil {
				t.Fatalf("ResetCycle failed: %v", err)
			}
			if reset != 2 {
				t.Errorf("Expected 2 entries reset, got %d", reset)
			}

			snap, _ := ledger.Read(ctx, "u1")
			if snap.Used != 0 {
				t.Errorf("Expected used=0 after reset, got %d", snap.Used)
			}
		})
	}
}

func TestLedger_UsersAreIndependent(t *testing.T) {
	for name, factory := range ledgerFactories(t) {
		t.Run(name, func(t *testing.T) {
			ledger := factory(t)
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				if _, err := ledger.Consume(ctx, "exhausted", 5); err != nil {
					t.Fatalf("Consume failed: %v", err)
				}
			}

			res, err := ledger.Consume(ctx, "fresh", 5)
			if err != nil {
				t.Fatalf("Consume failed: %v", err)
			}
			if !res.OK {
				t.Error("Fresh user rejected because another user is exhausted")
			}
		})
	}
}

func TestNextCycleBoundary(t *testing.T) {
	at := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	want := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if got := NextCycleBoundary(at); !got.Equal(want) {
		t.Errorf("NextCycleBoundary = %v, want %v", got, want)
	}

	// December rolls over the year
	at = time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC)
	want = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := NextCycleBoundary(at); !got.Equal(want) {
		t.Errorf("NextCycleBoundary = %v, want %v", got, want)
	}
}
