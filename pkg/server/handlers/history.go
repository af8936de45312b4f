package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"phrasecraft-hq/forge/pkg/history"
	"phrasecraft-hq/forge/pkg/server/middleware"
)

// maxPageSize caps the ?limit parameter.
const maxPageSize = 50

// HistoryHandler serves the rewrite history endpoints: list, get, and
// delete. Every operation is scoped to the caller, so one user can
// never see or remove another's records.
type HistoryHandler struct {
	store  history.Store
	logger *slog.Logger
}

// NewHistoryHandler creates the history endpoint handler.
func NewHistoryHandler(store history.Store, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{
		store:  store,
		logger: logger.With("handler", "history"),
	}
}

// List serves GET /v1/rewrites.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	opts := history.ListOptions{Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		opts.Limit = n
	}

	records, nextCursor, err := h.store.ListByUser(ctx, userID, opts)
	if err != nil {
		h.logger.ErrorContext(ctx, "history list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred. Please try again later.")
		return
	}

	resp := historyListResponse{
		Records:    make([]historyRecord, 0, len(records)),
		NextCursor: nextCursor,
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, toWireRecord(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get serves GET /v1/rewrites/{id}.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	id := r.PathValue("id")

	rec, err := h.store.GetByID(ctx, id, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "history get failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred. Please try again later.")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Rewrite not found.")
		return
	}

	writeJSON(w, http.StatusOK, toWireRecord(rec))
}

// Delete serves DELETE /v1/rewrites/{id}.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	id := r.PathValue("id")

	deleted, err := h.store.Delete(ctx, id, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "history delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred. Please try again later.")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Rewrite not found.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toWireRecord(rec *history.Record) historyRecord {
	return historyRecord{
		ID:         rec.ID,
		RawInput:   rec.RawInput,
		Variations: rec.Variations,
		Tone:       rec.Tone,
		TokenCount: rec.TokenCount,
		Model:      rec.Model,
		DurationMs: rec.DurationMs,
		CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}
