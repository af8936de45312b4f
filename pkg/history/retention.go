package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionScheduler sweeps expired rewrite records on a cron schedule.
// Records carry their expiry timestamp, so the sweep is a pure cleanup
// and can run at any cadence without changing visible behavior: expired
// records are already filtered out of listings.
type RetentionScheduler struct {
	store    Store
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	mu       sync.Mutex
	running  bool
}

// NewRetentionScheduler creates a scheduler that invokes store.DeleteStale
// per the cron expression, e.g. "30 2 * * *" for daily at 02:30.
func NewRetentionScheduler(store Store, schedule string) *RetentionScheduler {
	return &RetentionScheduler{
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "history.retention"),
	}
}

// Start begins the scheduled sweeps. If the schedule is empty, the
// scheduler does nothing.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("retention schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one retention sweep.
func (s *RetentionScheduler) runSweep(ctx context.Context) {
	deleted, err := s.store.DeleteStale(ctx, time.Now())
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("retention sweep completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("retention sweep completed, nothing expired")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}
