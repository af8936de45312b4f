package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/fingerprint"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/rewrite"
)

// flakyStore wraps a memory store and fails selected keys with the
// unavailable condition.
type flakyStore struct {
	*counterstore.MemoryStore
	failPrefix string
}

func (s *flakyStore) fails(key string) bool {
	return s.failPrefix != "" && strings.HasPrefix(key, s.failPrefix)
}

func (s *flakyStore) unavailable(key string) error {
	return fmt.Errorf("counter store down for %q: %w", key, counterstore.ErrUnavailable)
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.fails(key) {
		return "", false, s.unavailable(key)
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Incr(ctx context.Context, key string) (int64, error) {
	if s.fails(key) {
		return 0, s.unavailable(key)
	}
	return s.MemoryStore.Incr(ctx, key)
}

// fixedNow pins the controller clock so daily and per-minute window keys
// are stable across a test run.
var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	controller *Controller
	store      *flakyStore
	ledger     *quota.MemoryLedger
}

func newFixture(t *testing.T, cfg ControllerConfig) *fixture {
	t.Helper()

	f := &fixture{
		store:  &flakyStore{MemoryStore: counterstore.NewMemoryStore()},
		ledger: quota.NewMemoryLedger(),
	}

	resolver, err := plans.NewStaticResolver(plans.Defaults(), nil, plans.PlanFree)
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}

	cfg.Store = f.store
	cfg.Ledger = f.ledger
	cfg.Resolver = resolver
	cfg.Logger = slog.New(slog.DiscardHandler)
	cfg.Now = func() time.Time { return fixedNow }
	if cfg.GlobalDailyCap == 0 {
		cfg.GlobalDailyCap = 100
	}

	f.controller = NewController(cfg)
	return f
}

func validRequest() rewrite.Request {
	return rewrite.Request{
		RawInput: "managed a team of engineers and shipped on time",
		Tone:     rewrite.ToneProfessional,
	}
}

func (f *fixture) used(t *testing.T, userID string) int {
	t.Helper()
	snap, err := f.ledger.Read(context.Background(), userID)
	if err != nil {
		t.Fatalf("ledger read failed: %v", err)
	}
	return snap.Used
}

func TestAdmitSuccess(t *testing.T) {
	f := newFixture(t, ControllerConfig{})
	ctx := context.Background()

	decision, err := f.controller.Admit(ctx, "user-a", validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}

	if decision.CacheHit {
		t.Error("fresh request reported a cache hit")
	}
	if !decision.Consumed {
		t.Error("admitted request did not consume a slot")
	}
	if decision.Fingerprint == "" {
		t.Error("decision missing fingerprint")
	}
	if decision.Entitlements.Plan != plans.PlanFree {
		t.Errorf("plan = %q, want free", decision.Entitlements.Plan)
	}
	if used := f.used(t, "user-a"); used != 1 {
		t.Errorf("used = %d, want 1", used)
	}
}

func TestAdmitGlobalCapExceeded(t *testing.T) {
	f := newFixture(t, ControllerConfig{GlobalDailyCap: 2})
	ctx := context.Background()

	key := counterstore.GlobalDailyKey(fixedNow)
	for i := 0; i < 2; i++ {
		if _, err := f.store.Incr(ctx, key); err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
	}

	_, err := f.controller.Admit(ctx, "user-a", validRequest())
	var capErr *GlobalCapExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want GlobalCapExceededError", err)
	}

	// Rejection at step 1 never touches the ledger.
	if used := f.used(t, "user-a"); used != 0 {
		t.Errorf("used = %d, want 0", used)
	}
}

func TestAdmitGlobalCapFailClosed(t *testing.T) {
	f := newFixture(t, ControllerConfig{})
	f.store.failPrefix = "global:daily:"
	ctx := context.Background()

	_, err := f.controller.Admit(ctx, "user-a", validRequest())
	var capErr *GlobalCapExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want GlobalCapExceededError", err)
	}
	if used := f.used(t, "user-a"); used != 0 {
		t.Errorf("used = %d, want 0", used)
	}
}

func TestAdmitCacheHitSkipsQuotaAndRate(t *testing.T) {
	f := newFixture(t, ControllerConfig{})
	ctx := context.Background()

	req := validRequest()
	ent := plans.Defaults()[plans.PlanFree]
	fp := fingerprint.Rewrite(req.RawInput, string(req.Tone), ent.VariationCount)

	cached := "<result>Led a team</result><result>Directed a team</result>"
	if err := f.store.Set(ctx, counterstore.ResultCacheKey(fp), cached, counterstore.ResultCacheTTL); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	decision, err := f.controller.Admit(ctx, "user-a", req)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !decision.CacheHit {
		t.Fatal("expected cache hit")
	}
	if decision.CachedText != cached {
		t.Errorf("cached text = %q, want stored value", decision.CachedText)
	}
	if decision.Consumed {
		t.Error("cache hit must not consume quota")
	}
	if used := f.used(t, "user-a"); used != 0 {
		t.Errorf("used = %d, want 0", used)
	}

	// The rate window must not have been touched either.
	if _, found, err := f.store.Get(ctx, counterstore.RateWindowKey("user-a", fixedNow)); err != nil || found {
		t.Errorf("rate window touched on cache hit (found=%v err=%v)", found, err)
	}
}

func TestAdmitCacheFailOpen(t *testing.T) {
	f := newFixture(t, ControllerConfig{})
	f.store.failPrefix = "cache:rewrite:"
	ctx := context.Background()

	decision, err := f.controller.Admit(ctx, "user-a", validRequest())
	if err != nil {
		t.Fatalf("Admit failed with cache down: %v", err)
	}
	if decision.CacheHit {
		t.Error("unavailable cache reported a hit")
	}
	if !decision.Consumed {
		t.Error("request should proceed to quota with cache down")
	}
}

func TestAdmitQuotaExceeded(t *testing.T) {
	f := newFixture(t, ControllerConfig{})
	ctx := context.Background()

	limit := plans.Defaults()[plans.PlanFree].QuotaLimit
	for i := 0; i < limit; i++ {
		if _, err := f.ledger.Consume(ctx, "user-a", limit); err != nil {
			t.Fatalf("Consume failed: %v", err)
		}
	}

	_, err := f.controller.Admit(ctx, "user-a", validRequest())
	var quotaErr *QuotaExceededError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("err = %v, want QuotaExceededError", err)
	}
	if quotaErr.Limit != limit {
		t.Errorf("limit = %d, want %d", quotaErr.Limit, limit)
	}
	if !strings.Contains(quotaErr.Error(), "Upgrade") {
		t.Errorf("free-tier message should suggest upgrading: %q", quotaErr.Error())
	}
	if used := f.used(t, "user-a"); used != limit {
		t.Errorf("used = %d, want %d", f.used(t, "user-a"), limit)
	}
}

func TestQuotaExceededProMessage(t *testing.T) {
	err := &QuotaExceededError{Limit: 30, Plan: plans.PlanPro}
	if strings.Contains(err.Error(), "Upgrade") {
		t.Errorf("paid-tier message should not suggest upgrading: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "next cycle") {
		t.Errorf("paid-tier message should state the cycle reset: %q", err.Error())
	}
}

func TestAdmitRateLimited(t *testing.T) {
	f := newFixture(t, ControllerConfig{RatePerMinute: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.controller.Admit(ctx, "user-a", validRequest()); err != nil {
			t.Fatalf("Admit %d failed: %v", i, err)
		}
	}

	_, err := f.controller.Admit(ctx, "user-a", validRequest())
	var rateErr *RateLimitedError
	if !errors.As(err, &rateErr) {
		t.Fatalf("err = %v, want RateLimitedError", err)
	}

	// The slot consumed before the rate rejection is returned.
	if used := f.used(t, "user-a"); used != 2 {
		t.Errorf("used = %d, want 2", used)
	}
}

func TestAdmitRateLimitFailClosed(t *testing.T) {
	f := newFixture(t, ControllerConfig{})
	f.store.failPrefix = "rate:"
	ctx := context.Background()

	_, err := f.controller.Admit(ctx, "user-a", validRequest())
	var rateErr *RateLimitedError
	if !errors.As(err, &rateErr) {
		t.Fatalf("err = %v, want RateLimitedError", err)
	}

	// Consumed at step 3, refunded after the step 4 rejection.
	if used := f.used(t, "user-a"); used != 0 {
		t.Errorf("used = %d, want 0", used)
	}
}

func TestAdmitUsersRateLimitedIndependently(t *testing.T) {
	f := newFixture(t, ControllerConfig{RatePerMinute: 1})
	ctx := context.Background()

	if _, err := f.controller.Admit(ctx, "user-a", validRequest()); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if _, err := f.controller.Admit(ctx, "user-b", validRequest()); err != nil {
		t.Fatalf("second user should not share the first user's window: %v", err)
	}
}

func TestSetLimitsTakesEffect(t *testing.T) {
	f := newFixture(t, ControllerConfig{GlobalDailyCap: 1})
	ctx := context.Background()

	if _, err := f.controller.Admit(ctx, "user-a", validRequest()); err != nil {
		t.Fatalf("first admission failed: %v", err)
	}

	var capErr *GlobalCapExceededError
	_, err := f.controller.Admit(ctx, "user-b", validRequest())
	if !errors.As(err, &capErr) {
		t.Fatalf("expected global cap rejection, got %v", err)
	}

	// Raising the cap admits the next request against the same counter.
	f.controller.SetLimits(10, 1)
	if _, err := f.controller.Admit(ctx, "user-c", validRequest()); err != nil {
		t.Fatalf("admission after raising cap failed: %v", err)
	}

	// The lowered rate threshold applies too: second hit in the same
	// minute window is rejected and the consumed slot refunded.
	if _, err := f.controller.Admit(ctx, "user-c", validRequest()); err == nil {
		t.Fatal("expected rate limit rejection after lowering threshold")
	} else {
		var rateErr *RateLimitedError
		if !errors.As(err, &rateErr) {
			t.Fatalf("expected rate limit rejection, got %v", err)
		}
		if rateErr.Limit != 1 {
			t.Errorf("rejection carries limit %d, want 1", rateErr.Limit)
		}
	}
	if used := f.used(t, "user-c"); used != 1 {
		t.Errorf("used = %d after rate rejection refund, want 1", used)
	}
}
