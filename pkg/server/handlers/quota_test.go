package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/server/middleware"
)

func newQuotaStack(t *testing.T) (http.Handler, *quota.MemoryLedger, *counterstore.MemoryStore) {
	t.Helper()

	ledger := quota.NewMemoryLedger()
	store := counterstore.NewMemoryStore()
	resolver, err := plans.NewStaticResolver(plans.Defaults(), map[string]plans.Plan{"user-vip": plans.PlanPro}, plans.PlanFree)
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}

	handler := middleware.Identity(NewQuotaHandler(ledger, resolver, store, slog.New(slog.DiscardHandler)))
	return handler, ledger, store
}

func getQuota(t *testing.T, handler http.Handler, user string) (*httptest.ResponseRecorder, quotaResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/quota", nil)
	req.Header.Set(middleware.UserIDHeader, user)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp quotaResponse
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
	}
	return rec, resp
}

func TestQuotaSnapshot(t *testing.T) {
	handler, ledger, _ := newQuotaStack(t)

	for i := 0; i < 3; i++ {
		if _, err := ledger.Consume(context.Background(), "user-a", 5); err != nil {
			t.Fatalf("consume failed: %v", err)
		}
	}

	rec, resp := getQuota(t, handler, "user-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Used != 3 || resp.Limit != 5 || resp.Plan != "free" {
		t.Errorf("snapshot = %+v, want used=3 limit=5 plan=free", resp)
	}
	if resp.ResetAt == "" {
		t.Error("missing resetAt")
	}
}

func TestQuotaPlanAssignment(t *testing.T) {
	handler, _, _ := newQuotaStack(t)

	rec, resp := getQuota(t, handler, "user-vip")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Plan != "pro" || resp.Limit != 30 {
		t.Errorf("snapshot = %+v, want pro/30", resp)
	}
}

func TestQuotaServedFromCache(t *testing.T) {
	handler, ledger, store := newQuotaStack(t)

	if _, resp := getQuota(t, handler, "user-a"); resp.Used != 0 {
		t.Fatalf("initial used = %d, want 0", resp.Used)
	}

	// Move the ledger behind the cache's back. The cached snapshot wins
	// until it is invalidated.
	if _, err := ledger.Consume(context.Background(), "user-a", 5); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	if _, resp := getQuota(t, handler, "user-a"); resp.Used != 0 {
		t.Fatalf("cached used = %d, want stale 0", resp.Used)
	}

	// Invalidation, as the pipeline does after every consume or refund.
	if _, err := store.Del(context.Background(), counterstore.QuotaCacheKey("user-a")); err != nil {
		t.Fatalf("del failed: %v", err)
	}

	if _, resp := getQuota(t, handler, "user-a"); resp.Used != 1 {
		t.Fatalf("fresh used = %d, want 1", resp.Used)
	}
}

func TestQuotaMalformedCacheFallsThrough(t *testing.T) {
	ledger := quota.NewMemoryLedger()
	store := counterstore.NewMemoryStore()
	resolver, err := plans.NewStaticResolver(plans.Defaults(), nil, plans.PlanFree)
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
	handler := middleware.Identity(NewQuotaHandler(ledger, resolver, store, logger))

	ctx := context.Background()
	if _, err := ledger.Consume(ctx, "user-a", 5); err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if err := store.Set(ctx, counterstore.QuotaCacheKey("user-a"), "{not json", counterstore.QuotaCacheTTL); err != nil {
		t.Fatalf("failed to poison cache: %v", err)
	}

	rec, resp := getQuota(t, handler, "user-a")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Used != 1 {
		t.Errorf("used = %d from ledger fallback, want 1", resp.Used)
	}

	logged := logBuf.String()
	if !strings.Contains(logged, "discarding malformed quota cache entry") {
		t.Fatalf("missing discard warning, log: %s", logged)
	}
	if !strings.Contains(logged, "invalid character") {
		t.Errorf("warning does not carry the decode error, log: %s", logged)
	}
}
