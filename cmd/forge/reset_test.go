package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"phrasecraft-hq/forge/pkg/quota"
)

func TestSweepLedgerAdvancesDueEntries(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	ledger, err := quota.NewSQLiteLedger(dbPath)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	for _, user := range []string{"user-a", "user-b"} {
		if _, err := ledger.Consume(ctx, user, 5); err != nil {
			t.Fatalf("consume failed for %s: %v", user, err)
		}
	}
	if err := ledger.Close(); err != nil {
		t.Fatalf("failed to close ledger: %v", err)
	}

	// Mid-cycle, nothing is due.
	reset, err := sweepLedger(ctx, dbPath, 0, time.Now())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if reset != 0 {
		t.Errorf("mid-cycle sweep reset %d entries, want 0", reset)
	}

	// Past the cycle boundary both entries are zeroed and advanced.
	afterBoundary := quota.NextCycleBoundary(time.Now()).Add(time.Hour)
	reset, err = sweepLedger(ctx, dbPath, 0, afterBoundary)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if reset != 2 {
		t.Errorf("post-boundary sweep reset %d entries, want 2", reset)
	}

	ledger, err = quota.NewSQLiteLedger(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	defer ledger.Close()

	snap, err := ledger.Read(ctx, "user-a")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if snap.Used != 0 {
		t.Errorf("used = %d after sweep, want 0", snap.Used)
	}
	if !snap.ResetAt.After(afterBoundary) {
		t.Errorf("reset_at = %v, want after %v", snap.ResetAt, afterBoundary)
	}
}
