package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/server/middleware"
)

// QuotaHandler serves GET /v1/quota: the user's usage snapshot, cached
// in the counter store for a short window. Consume and refund both
// invalidate the cache, so staleness is bounded by the TTL and only in
// the unread direction.
type QuotaHandler struct {
	ledger   quota.Ledger
	resolver plans.Resolver
	store    counterstore.Store
	logger   *slog.Logger
}

// NewQuotaHandler creates the quota endpoint handler.
func NewQuotaHandler(ledger quota.Ledger, resolver plans.Resolver, store counterstore.Store, logger *slog.Logger) *QuotaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuotaHandler{
		ledger:   ledger,
		resolver: resolver,
		store:    store,
		logger:   logger.With("handler", "quota"),
	}
}

func (h *QuotaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	key := counterstore.QuotaCacheKey(userID)

	if cached, found, err := h.store.Get(ctx, key); err == nil && found {
		var resp quotaResponse
		unmarshalErr := json.Unmarshal([]byte(cached), &resp)
		if unmarshalErr == nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}
		h.logger.WarnContext(ctx, "discarding malformed quota cache entry", "error", unmarshalErr)
	}

	ent, err := h.resolver.Resolve(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "plan resolution failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred. Please try again later.")
		return
	}

	snap, err := h.ledger.Read(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "ledger read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred. Please try again later.")
		return
	}

	resetAt := snap.ResetAt
	if resetAt.IsZero() {
		resetAt = quota.NextCycleBoundary(time.Now())
	}

	resp := quotaResponse{
		Used:    snap.Used,
		Limit:   ent.QuotaLimit,
		Plan:    string(ent.Plan),
		ResetAt: resetAt.UTC().Format(time.RFC3339),
	}

	if body, err := json.Marshal(resp); err == nil {
		if err := h.store.Set(ctx, key, string(body), counterstore.QuotaCacheTTL); err != nil {
			h.logger.DebugContext(ctx, "quota cache write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
