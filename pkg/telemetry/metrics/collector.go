package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config controls metric collection.
type Config struct {
	// Enabled turns collection on. When false every recording method is
	// a no-op.
	Enabled bool

	// Namespace is the metric name prefix. Default: "forge".
	Namespace string

	// StreamDurationBuckets are the histogram buckets for end-to-end
	// stream duration, in seconds.
	StreamDurationBuckets []float64

	// FirstChunkBuckets are the histogram buckets for time to first
	// streamed chunk, in seconds.
	FirstChunkBuckets []float64
}

// Collector registers and records all pipeline metrics.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	admissionMetrics *AdmissionMetrics
	streamMetrics    *StreamMetrics
}

// NewCollector creates a collector with its own registry. If registry is
// nil a fresh one is created.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "forge"
	}
	if len(cfg.StreamDurationBuckets) == 0 {
		// Generation runs anywhere from under a second to the 30s deadline.
		cfg.StreamDurationBuckets = []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 30.0}
	}
	if len(cfg.FirstChunkBuckets) == 0 {
		cfg.FirstChunkBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.admissionMetrics = NewAdmissionMetrics(cfg, registry)
	c.streamMetrics = NewStreamMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordAdmission records one admission pipeline outcome.
//
// step names the stage that decided ("global_cap", "cache", "quota",
// "rate_limit", "admitted"); outcome is "allowed", "rejected", or
// "unavailable".
func (c *Collector) RecordAdmission(step, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.admissionMetrics.RecordDecision(step, outcome)
}

// RecordCacheHit records a result cache hit.
func (c *Collector) RecordCacheHit() {
	if !c.config.Enabled {
		return
	}
	c.admissionMetrics.RecordCache("hit")
}

// RecordCacheMiss records a result cache miss.
func (c *Collector) RecordCacheMiss() {
	if !c.config.Enabled {
		return
	}
	c.admissionMetrics.RecordCache("miss")
}

// RecordRefund records a quota compensation after a failed stream.
func (c *Collector) RecordRefund() {
	if !c.config.Enabled {
		return
	}
	c.admissionMetrics.RecordRefund()
}

// RecordStream records a finished backend stream.
//
// status is "success", "error", or "canceled"; firstChunk is zero when
// the stream failed before producing output.
func (c *Collector) RecordStream(model, status string, duration, firstChunk time.Duration, promptTokens, completionTokens int) {
	if !c.config.Enabled {
		return
	}
	c.streamMetrics.RecordStream(model, status, duration, firstChunk)
	c.streamMetrics.RecordTokens(model, promptTokens, completionTokens)
}
