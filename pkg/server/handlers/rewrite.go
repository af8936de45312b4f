package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"phrasecraft-hq/forge/pkg/admission"
	"phrasecraft-hq/forge/pkg/rewrite"
	"phrasecraft-hq/forge/pkg/server/middleware"
)

// RewriteHandler runs the full pipeline for POST /v1/rewrite: validate,
// admit, execute, stream.
type RewriteHandler struct {
	admission *admission.Controller
	engine    *rewrite.Engine
	logger    *slog.Logger
}

// NewRewriteHandler creates the rewrite endpoint handler.
func NewRewriteHandler(ctrl *admission.Controller, engine *rewrite.Engine, logger *slog.Logger) *RewriteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RewriteHandler{
		admission: ctrl,
		engine:    engine,
		logger:    logger.With("handler", "rewrite"),
	}
}

func (h *RewriteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var wire rewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be JSON with rawInput and tone.")
		return
	}

	req := rewrite.Request{
		RawInput: wire.RawInput,
		Tone:     rewrite.Tone(wire.Tone),
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	decision, err := h.admission.Admit(ctx, userID, req)
	if err != nil {
		h.writeAdmissionError(w, r, err)
		return
	}

	job := rewrite.Job{
		UserID:        userID,
		Request:       req,
		Entitlements:  decision.Entitlements,
		Fingerprint:   decision.Fingerprint,
		CachedText:    decision.CachedText,
		CacheHit:      decision.CacheHit,
		QuotaConsumed: decision.Consumed,
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot open event stream", "error", err)
		writeError(w, http.StatusInternalServerError, "Streaming is not supported by this connection.")
		return
	}

	events := h.engine.Execute(ctx, job)
	for ev := range events {
		if err := sse.WriteEvent(ev); err != nil {
			// Client gone. Keep draining so the engine observes the
			// cancelled context and finishes its compensation.
			h.logger.DebugContext(ctx, "event write failed, draining", "error", err)
			for range events {
			}
			return
		}
	}
}

// writeAdmissionError maps the admission taxonomy onto status codes.
// These are the only rejections that happen before the stream opens.
func (h *RewriteHandler) writeAdmissionError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		quotaErr *admission.QuotaExceededError
		rateErr  *admission.RateLimitedError
		capErr   *admission.GlobalCapExceededError
	)

	switch {
	case errors.As(err, &quotaErr):
		writeError(w, http.StatusTooManyRequests, quotaErr.Error())
	case errors.As(err, &rateErr):
		writeError(w, http.StatusTooManyRequests, rateErr.Error())
	case errors.As(err, &capErr):
		writeError(w, http.StatusServiceUnavailable, capErr.Error())
	default:
		h.logger.ErrorContext(r.Context(), "admission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred. Please try again later.")
	}
}
