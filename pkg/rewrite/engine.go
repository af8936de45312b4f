package rewrite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"phrasecraft-hq/forge/pkg/backend"
	"phrasecraft-hq/forge/pkg/counterstore"
	"phrasecraft-hq/forge/pkg/history"
	"phrasecraft-hq/forge/pkg/plans"
	"phrasecraft-hq/forge/pkg/quota"
	"phrasecraft-hq/forge/pkg/telemetry/metrics"
)

// Public error messages sent in-band. Backend detail stays in the logs.
const (
	msgGenerationFailed  = "Generation failed. Please try again. This attempt has not been counted against your quota."
	msgGenerationTimeout = "Generation timed out. Please try again. This attempt has not been counted against your quota."
	msgEmptyResult       = "The service returned no content. Please try again. This attempt has not been counted against your quota."
)

// bookkeepTimeout bounds the post-stream persistence work, which runs on
// a background context after the caller-facing stream has closed.
const bookkeepTimeout = 10 * time.Second

// Job is one admitted rewrite, handed from the admission controller to
// the engine. All fields are set by admission; the engine never consults
// the ledger or the plan resolver itself.
type Job struct {
	// UserID is the requesting user.
	UserID string

	// Request is the validated rewrite request.
	Request Request

	// Entitlements are the user's resolved plan entitlements.
	Entitlements plans.Entitlements

	// Fingerprint is the request fingerprint, used as the result cache
	// key suffix.
	Fingerprint string

	// CachedText is the full previously generated text when CacheHit is
	// true.
	CachedText string

	// CacheHit is true when admission found a cached result. The engine
	// then replays CachedText without touching the backend.
	CacheHit bool

	// QuotaConsumed is true when admission consumed a quota slot for
	// this job. Only consumed slots are refunded on failure.
	QuotaConsumed bool
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Generator backend.Generator
	Ledger    quota.Ledger
	Store     counterstore.Store
	History   history.Store

	// Metrics is optional.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Timeout bounds one backend generation. Default: 30 seconds.
	Timeout time.Duration
}

// Engine executes admitted rewrite jobs against the backend and streams
// the result to the caller.
type Engine struct {
	generator backend.Generator
	ledger    quota.Ledger
	store     counterstore.Store
	history   history.Store
	metrics   *metrics.Collector
	logger    *slog.Logger
	timeout   time.Duration
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		generator: cfg.Generator,
		ledger:    cfg.Ledger,
		store:     cfg.Store,
		history:   cfg.History,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "rewrite.engine"),
		timeout:   timeout,
	}
}

// Execute runs one job and returns the caller-facing event stream. The
// channel is unbuffered and is closed after the terminal event (Done or
// Error). Cancelling ctx abandons the stream; an abandoned uncached job
// is treated as a failure and refunded.
func (e *Engine) Execute(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event)
	go e.run(ctx, job, events)
	return events
}

func (e *Engine) run(parent context.Context, job Job, events chan<- Event) {
	logger := e.logger.With("user_id", job.UserID)

	if job.CacheHit {
		// Replay: one text event with the full cached text, then done.
		// No backend call, no bookkeeping, nothing to refund.
		if e.send(parent, events, TextEvent(job.CachedText)) {
			e.send(parent, events, DoneEvent())
		}
		close(events)
		return
	}

	success := false
	defer func() {
		if !success {
			e.compensate(job, logger)
		}
	}()

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	start := time.Now()
	model := e.generator.Model()

	system := BuildSystemPrompt(job.Entitlements.VariationCount, job.Request.Tone)
	user := BuildUserPrompt(job.Request.RawInput)

	stream, err := e.generator.OpenStream(ctx, system, user)
	if err != nil {
		logger.Error("backend stream open failed", "error", err)
		e.recordStream(model, "error", time.Since(start), 0, backend.TokenUsage{})
		e.send(parent, events, ErrorEvent(publicMessage(err)))
		close(events)
		return
	}
	defer stream.Close()

	var (
		buf        strings.Builder
		usage      backend.TokenUsage
		firstChunk time.Duration
	)

	for {
		chunk, err := stream.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error("backend stream failed", "error", err, "received_bytes", buf.Len())
			e.recordStream(model, streamStatus(err), time.Since(start), firstChunk, usage)
			e.send(parent, events, ErrorEvent(publicMessage(err)))
			close(events)
			return
		}

		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
		if chunk.Text == "" {
			continue
		}
		if firstChunk == 0 {
			firstChunk = time.Since(start)
		}
		buf.WriteString(chunk.Text)

		if !e.send(parent, events, TextEvent(chunk.Text)) {
			// Caller gone mid-stream. The partial result is unusable.
			logger.Warn("caller disconnected mid-stream", "received_bytes", buf.Len())
			e.recordStream(model, "canceled", time.Since(start), firstChunk, usage)
			close(events)
			return
		}
	}

	if buf.Len() == 0 {
		// The backend closed cleanly without producing anything.
		logger.Error("backend stream ended with empty buffer", "model", model)
		e.recordStream(model, "error", time.Since(start), 0, usage)
		e.send(parent, events, ErrorEvent(msgEmptyResult))
		close(events)
		return
	}

	duration := time.Since(start)

	// Terminal event and channel close come before any persistence so
	// bookkeeping latency never reaches the caller.
	if !e.send(parent, events, DoneEvent()) {
		logger.Warn("caller disconnected before done event")
		e.recordStream(model, "canceled", duration, firstChunk, usage)
		close(events)
		return
	}
	close(events)
	success = true

	e.recordStream(model, "success", duration, firstChunk, usage)
	e.bookkeep(job, buf.String(), usage, duration, logger)
}

// send delivers ev unless the caller's context ends first.
func (e *Engine) send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// bookkeep persists the finished rewrite and populates the result cache.
// Failures here are logged, never surfaced: the caller already has its
// result.
func (e *Engine) bookkeep(job Job, text string, usage backend.TokenUsage, duration time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), bookkeepTimeout)
	defer cancel()

	now := time.Now().UTC()
	variations := ParseVariations(text)

	rec := &history.Record{
		ID:         uuid.NewString(),
		UserID:     job.UserID,
		RawInput:   job.Request.RawInput,
		Variations: variations,
		Tone:       string(job.Request.Tone),
		TokenCount: usage.Total(),
		Model:      e.generator.Model(),
		DurationMs: duration.Milliseconds(),
		CreatedAt:  now,
		ExpiresAt:  now.AddDate(0, 0, job.Entitlements.RetentionDays),
	}
	if err := e.history.Save(ctx, rec); err != nil {
		logger.Error("failed to persist rewrite record", "error", err, "record_id", rec.ID)
	}

	key := counterstore.ResultCacheKey(job.Fingerprint)
	if err := e.store.Set(ctx, key, text, counterstore.ResultCacheTTL); err != nil {
		logger.Warn("failed to populate result cache", "error", err)
	}
}

// compensate refunds the consumed quota slot after a non-success. Runs on
// a background context: the caller may already be gone.
func (e *Engine) compensate(job Job, logger *slog.Logger) {
	if !job.QuotaConsumed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.ledger.Refund(ctx, job.UserID); err != nil {
		logger.Error("quota refund failed", "error", err)
		return
	}
	if _, err := e.store.Del(ctx, counterstore.QuotaCacheKey(job.UserID)); err != nil {
		logger.Warn("quota cache invalidation failed after refund", "error", err)
	}
	if e.metrics != nil {
		e.metrics.RecordRefund()
	}
	logger.Info("quota slot refunded")
}

func (e *Engine) recordStream(model, status string, duration, firstChunk time.Duration, usage backend.TokenUsage) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordStream(model, status, duration, firstChunk, usage.PromptTokens, usage.CompletionTokens)
}

// streamStatus buckets a stream error for metrics.
func streamStatus(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

// publicMessage maps an internal error to the in-band message shown to
// the caller.
func publicMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return msgGenerationTimeout
	}
	return msgGenerationFailed
}
