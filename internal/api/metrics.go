// internal/api/metrics.go
package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for one server instance. Each
// server owns its registry so tests can build independent instances
// without duplicate-registration panics.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	LatencyHistogram *prometheus.HistogramVec
	EventsIngested   *prometheus.CounterVec
	BeaconsReceived  prometheus.Counter
	CacheBytes       prometheus.Gauge
	PrefetchActive   prometheus.Gauge
	registry         *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foresight_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		LatencyHistogram: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foresight_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		EventsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foresight_behavior_events_total",
				Help: "Behavior events ingested, by kind",
			},
			[]string{"kind"},
		),
		BeaconsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "foresight_beacons_received_total",
				Help: "Telemetry beacons received",
			},
		),
		CacheBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "foresight_response_cache_bytes",
				Help: "Current response cache size in bytes",
			},
		),
		PrefetchActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "foresight_prefetch_active",
				Help: "Prefetch fetches currently in flight",
			},
		),
		registry: registry,
	}

	registry.MustRegister(m.RequestCounter)
	registry.MustRegister(m.LatencyHistogram)
	registry.MustRegister(m.EventsIngested)
	registry.MustRegister(m.BeaconsReceived)
	registry.MustRegister(m.CacheBytes)
	registry.MustRegister(m.PrefetchActive)

	return m
}

// IncrementRequest increments the request counter.
func (m *Metrics) IncrementRequest(method, path string, status int) {
	m.RequestCounter.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
}

// RecordLatency records request latency.
func (m *Metrics) RecordLatency(method, path string, seconds float64) {
	m.LatencyHistogram.WithLabelValues(method, path).Observe(seconds)
}

// Handler returns the Prometheus metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
