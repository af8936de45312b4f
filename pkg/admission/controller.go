package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/fingerprint"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/rewrite"
	"phrasecraft-hq/forge/pkg/telemetry/metrics"
)

// Decision is the output of a successful admission. It carries everything
// the engine needs so the engine never re-consults the ledger or resolver.
type Decision struct {
	// Fingerprint addresses the result cache for this request.
	Fingerprint string

	// Entitlements are the user's resolved plan entitlements.
	Entitlements plans.Entitlements

	// CacheHit is true when a cached result was found; CachedText then
	// holds the full previously generated text.
	CacheHit   bool
	CachedText string

	// Consumed is true when a quota slot was taken for this request.
	// Always false on a cache hit.
	Consumed bool
}

// ControllerConfig wires the controller's collaborators.
type ControllerConfig struct {
	Store    counterstore.Store
	Ledger   quota.Ledger
	Resolver plans.Resolver

	// GlobalDailyCap is the system-wide admission ceiling per UTC day.
	GlobalDailyCap int64

	// RatePerMinute is the per-user fixed-window threshold. Default: 3.
	RatePerMinute int

	// Metrics is optional.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller runs the ordered admission pipeline. The cap and rate
// fields are atomics so a config reload can move them while requests
// are in flight.
type Controller struct {
	store    counterstore.Store
	ledger   quota.Ledger
	resolver plans.Resolver
	cap      atomic.Int64
	rate     atomic.Int64
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
}

// NewController creates a controller from cfg.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 3
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		store:    cfg.Store,
		ledger:   cfg.Ledger,
		resolver: cfg.Resolver,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "admission"),
		now:      now,
	}
	c.cap.Store(cfg.GlobalDailyCap)
	c.rate.Store(int64(rate))
	return c
}

// SetLimits replaces the global daily cap and per-user rate threshold.
// In-flight admissions see either the old or the new values; the counter
// windows themselves are unaffected. Called on config reload.
func (c *Controller) SetLimits(globalDailyCap int64, ratePerMinute int) {
	if ratePerMinute <= 0 {
		ratePerMinute = 3
	}
	c.cap.Store(globalDailyCap)
	c.rate.Store(int64(ratePerMinute))
}

// Admit runs the pipeline for one validated request. A nil error means
// the request proceeds to the engine with the returned decision; a
// non-nil error is one of the admission error types and maps directly
// to a synchronous rejection.
func (c *Controller) Admit(ctx context.Context, userID string, req rewrite.Request) (Decision, error) {
	logger := c.logger.With("user_id", userID)

	// Step 1: global daily cap, fail-closed.
	if err := c.checkGlobalCap(ctx, logger); err != nil {
		return Decision{}, err
	}

	// Plan resolution feeds both the fingerprint (variation count) and
	// the quota limit.
	ent, err := c.resolver.Resolve(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to resolve plan for %q: %w", userID, err)
	}

	fp := fingerprint.Rewrite(req.RawInput, string(req.Tone), ent.VariationCount)

	// Step 2: result cache, fail-open. A hit bypasses quota and rate
	// limiting; replays are free.
	if cached, hit := c.lookupCache(ctx, fp, logger); hit {
		c.record("cache", "allowed")
		return Decision{
			Fingerprint:  fp,
			Entitlements: ent,
			CacheHit:     true,
			CachedText:   cached,
		}, nil
	}

	// Step 3: durable quota consume. The only pre-generation mutation of
	// durable state; failures downstream are compensated by the engine.
	if err := c.consumeQuota(ctx, userID, ent, logger); err != nil {
		return Decision{}, err
	}

	// Step 4: per-user fixed window, fail-closed. Runs after consume to
	// match the ordered pipeline; a rejection here is a non-success and
	// the consumed slot is refunded by the caller surface.
	if err := c.checkRateLimit(ctx, userID, logger); err != nil {
		c.refundAfterRejection(ctx, userID, logger)
		return Decision{}, err
	}

	c.record("admitted", "allowed")
	return Decision{
		Fingerprint:  fp,
		Entitlements: ent,
		Consumed:     true,
	}, nil
}

// checkGlobalCap increments the shared daily counter and rejects when
// the cap is exceeded or the store is down.
func (c *Controller) checkGlobalCap(ctx context.Context, logger *slog.Logger) error {
	key := counterstore.GlobalDailyKey(c.now())

	n, err := c.store.Incr(ctx, key)
	if err != nil {
		logger.Error("global cap check unavailable, failing closed", "error", err)
		c.record("global_cap", "unavailable")
		return &GlobalCapExceededError{}
	}
	if n == 1 {
		// First admission of the day starts the window.
		if _, err := c.store.Expire(ctx, key, counterstore.GlobalDailyTTL); err != nil {
			logger.Warn("failed to set daily counter expiry", "error", err)
		}
	}
	if limit := c.cap.Load(); n > limit {
		logger.Warn("global daily cap exceeded", "count", n, "cap", limit)
		c.record("global_cap", "rejected")
		return &GlobalCapExceededError{}
	}
	return nil
}

// lookupCache returns the cached text for fp. Store failures degrade to
// a miss.
func (c *Controller) lookupCache(ctx context.Context, fp string, logger *slog.Logger) (string, bool) {
	cached, found, err := c.store.Get(ctx, counterstore.ResultCacheKey(fp))
	if err != nil {
		logger.Warn("result cache unavailable, treating as miss", "error", err, "unavailable", errors.Is(err, counterstore.ErrUnavailable))
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
		return "", false
	}
	if !found {
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
		return "", false
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
	return cached, true
}

// consumeQuota takes one slot from the durable ledger and invalidates
// the quota display cache.
func (c *Controller) consumeQuota(ctx context.Context, userID string, ent plans.Entitlements, logger *slog.Logger) error {
	result, err := c.ledger.Consume(ctx, userID, ent.QuotaLimit)
	if err != nil {
		return fmt.Errorf("quota consume failed for %q: %w", userID, err)
	}
	if !result.OK {
		logger.Info("quota exhausted", "used", result.Used, "limit", ent.QuotaLimit, "plan", ent.Plan)
		c.record("quota", "rejected")
		return &QuotaExceededError{Limit: ent.QuotaLimit, Plan: ent.Plan}
	}

	// The display cache is stale the instant the ledger moves.
	if _, err := c.store.Del(ctx, counterstore.QuotaCacheKey(userID)); err != nil {
		logger.Warn("quota display cache invalidation failed", "error", err)
	}
	return nil
}

// checkRateLimit increments the current one-minute window and rejects
// when the threshold is exceeded or the store is down.
func (c *Controller) checkRateLimit(ctx context.Context, userID string, logger *slog.Logger) error {
	key := counterstore.RateWindowKey(userID, c.now())

	rate := int(c.rate.Load())

	n, err := c.store.Incr(ctx, key)
	if err != nil {
		logger.Error("rate limit check unavailable, failing closed", "error", err)
		c.record("rate_limit", "unavailable")
		return &RateLimitedError{Limit: rate}
	}
	if n == 1 {
		if _, err := c.store.Expire(ctx, key, counterstore.RateWindowTTL); err != nil {
			logger.Warn("failed to set rate window expiry", "error", err)
		}
	}
	if n > int64(rate) {
		logger.Info("rate limit exceeded", "count", n, "limit", rate)
		c.record("rate_limit", "rejected")
		return &RateLimitedError{Limit: rate}
	}
	return nil
}

// refundAfterRejection returns the slot consumed at step 3 when step 4
// rejects. Best effort, mirrors the engine's compensation.
func (c *Controller) refundAfterRejection(ctx context.Context, userID string, logger *slog.Logger) {
	if err := c.ledger.Refund(ctx, userID); err != nil {
		logger.Error("refund after rate-limit rejection failed", "error", err)
		return
	}
	if _, err := c.store.Del(ctx, counterstore.QuotaCacheKey(userID)); err != nil {
		logger.Warn("quota display cache invalidation failed after refund", "error", err)
	}
	if c.metrics != nil {
		c.metrics.RecordRefund()
	}
}

func (c *Controller) record(step, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordAdmission(step, outcome)
	}
}
