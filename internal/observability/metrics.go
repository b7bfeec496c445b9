// Package observability provides Prometheus metrics for the attendance
// service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	ingestOutcomesTotal *prometheus.CounterVec
	ingestDuration      prometheus.Histogram

	notificationsTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all collectors registered
// against a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ingestOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attendance_ingest_outcomes_total",
				Help: "Recognition event ingest results by policy outcome",
			},
			[]string{"outcome"},
		),
		ingestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "attendance_ingest_duration_seconds",
				Help:    "Time spent processing one recognition event",
				Buckets: prometheus.DefBuckets,
			},
		),
		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attendance_notifications_total",
				Help: "Parent notification deliveries by provider and result",
			},
			[]string{"provider", "result"},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attendance_http_requests_total",
				Help: "HTTP requests by method, path and status code",
			},
			[]string{"method", "path", "code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "attendance_http_request_duration_seconds",
				Help:    "HTTP request latency by method and path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	collectors := []prometheus.Collector{
		m.ingestOutcomesTotal,
		m.ingestDuration,
		m.notificationsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// IngestOutcome counts one ingest result, keyed by outcome wire name.
func (m *Metrics) IngestOutcome(outcome string) {
	m.ingestOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveIngestDuration records how long one ingest call took.
func (m *Metrics) ObserveIngestDuration(seconds float64) {
	m.ingestDuration.Observe(seconds)
}

// NotificationResult counts one notification attempt.
func (m *Metrics) NotificationResult(provider, result string) {
	m.notificationsTotal.WithLabelValues(provider, result).Inc()
}

// HTTPRequest counts one served HTTP request and its latency.
func (m *Metrics) HTTPRequest(method, path, code string, seconds float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
