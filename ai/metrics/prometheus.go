// Package metrics provides Prometheus metrics export for the resolution pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports resolution metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	resolveLatency  *prometheus.HistogramVec
	resolveRequests *prometheus.CounterVec

	stageHits *prometheus.CounterVec

	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	feedbackTotal *prometheus.CounterVec
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}
}

// NewExporter creates a new Prometheus metrics exporter.
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.resolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sagely",
			Subsystem: "resolve",
			Name:      "latency_seconds",
			Help:      "Query resolution latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"source"},
	)

	e.resolveRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sagely",
			Subsystem: "resolve",
			Name:      "requests_total",
			Help:      "Total number of resolution requests",
		},
		[]string{"source", "status"},
	)

	e.stageHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sagely",
			Subsystem: "resolve",
			Name:      "stage_hits_total",
			Help:      "Total number of resolutions answered per pipeline stage",
		},
		[]string{"stage"},
	)

	e.providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sagely",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of provider calls",
		},
		[]string{"provider", "status"},
	)

	e.providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sagely",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"provider"},
	)

	e.cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sagely",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	e.cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sagely",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	e.feedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sagely",
			Subsystem: "feedback",
			Name:      "received_total",
			Help:      "Total number of feedback signals received",
		},
		[]string{"kind"},
	)

	registry.MustRegister(
		e.resolveLatency,
		e.resolveRequests,
		e.stageHits,
		e.providerCalls,
		e.providerLatency,
		e.cacheHits,
		e.cacheMisses,
		e.feedbackTotal,
	)

	return e
}

// RecordResolve records one completed resolution request.
func (e *Exporter) RecordResolve(source string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	e.resolveRequests.WithLabelValues(source, status).Inc()
	e.resolveLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordStageHit records which pipeline stage produced the answer.
func (e *Exporter) RecordStageHit(stage string) {
	e.stageHits.WithLabelValues(stage).Inc()
}

// RecordProviderCall records a provider call.
func (e *Exporter) RecordProviderCall(provider string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	e.providerCalls.WithLabelValues(provider, status).Inc()
	e.providerLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordCacheHit records a cache hit.
func (e *Exporter) RecordCacheHit(cacheType string) {
	e.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (e *Exporter) RecordCacheMiss(cacheType string) {
	e.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordFeedback records a received feedback signal.
func (e *Exporter) RecordFeedback(kind string) {
	e.feedbackTotal.WithLabelValues(kind).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
