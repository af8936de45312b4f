package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics tracks backend stream execution.
//
// Metrics:
//   - forge_streams_total: finished streams by model and status
//   - forge_stream_duration_seconds: end-to-end stream duration
//   - forge_stream_first_chunk_seconds: time to first streamed chunk
//   - forge_stream_tokens_total: tokens by model and type
type StreamMetrics struct {
	streamsTotal   *prometheus.CounterVec
	streamDuration *prometheus.HistogramVec
	firstChunk     *prometheus.HistogramVec
	tokensTotal    *prometheus.CounterVec
}

// NewStreamMetrics creates and registers stream metrics with the provided
// registry.
func NewStreamMetrics(cfg Config, registry *prometheus.Registry) *StreamMetrics {
	sm := &StreamMetrics{
		streamsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "streams_total",
				Help:      "Finished backend streams by model and status",
			},
			[]string{"model", "status"},
		),

		streamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_duration_seconds",
				Help:      "End-to-end backend stream duration in seconds",
				Buckets:   cfg.StreamDurationBuckets,
			},
			[]string{"model"},
		),

		firstChunk: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_first_chunk_seconds",
				Help:      "Time to first streamed chunk in seconds",
				Buckets:   cfg.FirstChunkBuckets,
			},
			[]string{"model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_tokens_total",
				Help:      "Tokens processed by model and type",
			},
			[]string{"model", "type"},
		),
	}

	registry.MustRegister(
		sm.streamsTotal,
		sm.streamDuration,
		sm.firstChunk,
		sm.tokensTotal,
	)

	return sm
}

// RecordStream records a finished stream. firstChunk of zero means the
// stream produced no output before ending.
func (sm *StreamMetrics) RecordStream(model, status string, duration, firstChunk time.Duration) {
	sm.streamsTotal.WithLabelValues(model, status).Inc()
	sm.streamDuration.WithLabelValues(model).Observe(duration.Seconds())
	if firstChunk > 0 {
		sm.firstChunk.WithLabelValues(model).Observe(firstChunk.Seconds())
	}
}

// RecordTokens records prompt and completion token counts.
func (sm *StreamMetrics) RecordTokens(model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		sm.tokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		sm.tokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}
