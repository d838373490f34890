package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	EventsTotal     *prometheus.CounterVec
	ToolCallsTotal  *prometheus.CounterVec
	LeadsTotal      *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.RequestsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.RequestDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "switchboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.EventsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_webhook_events_total",
			Help: "Call events received, by type and outcome",
		},
		[]string{"event", "outcome"},
	)
	m.ToolCallsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_tool_calls_total",
			Help: "Function-call tool invocations",
		},
		[]string{"tool", "status"},
	)
	m.LeadsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchboard_leads_written_total",
			Help: "Leads written from calls",
		},
		[]string{"action"},
	)
	return m
}

// Registry exposes the underlying registry, for promhttp.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Metrics) RecordHTTPRequest(method, route, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
