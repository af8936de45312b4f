package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ResetScheduler runs the quota cycle reset on a cron schedule. The
// ledger's reset predicate is idempotent (only entries whose reset
// timestamp has passed are touched), so the schedule can run far more
// often than the monthly cycle without over-resetting.
type ResetScheduler struct {
	ledger   Ledger
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	mu       sync.Mutex
	running  bool
}

// NewResetScheduler creates a scheduler that invokes ledger.ResetCycle
// per the cron expression, e.g. "0 0 * * *" for daily at midnight.
func NewResetScheduler(ledger Ledger, schedule string) *ResetScheduler {
	return &ResetScheduler{
		ledger:   ledger,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "quota.scheduler"),
	}
}

// Start begins the scheduled resets. If the schedule is empty, the
// scheduler does nothing.
func (s *ResetScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("reset schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runReset(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule quota reset: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("quota reset scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runReset executes one reset cycle.
func (s *ResetScheduler) runReset(ctx context.Context) {
	reset, err := s.ledger.ResetCycle(ctx, time.Now())
	if err != nil {
		s.logger.Error("scheduled quota reset failed", "error", err)
		return
	}

	if reset > 0 {
		s.logger.Info("quota cycle reset completed", "reset_count", reset)
	} else {
		s.logger.Debug("quota cycle reset completed, no entries due")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *ResetScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("quota reset scheduler stopped")
	}
}
