// Package metrics provides Prometheus metrics export for the chat core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter collects chat, tool and loop metrics. A nil *Exporter is valid and
// drops every observation, so callers never need to guard their calls.
type Exporter struct {
	registry *prometheus.Registry

	chatRequests   *prometheus.CounterVec
	chatLatency    *prometheus.HistogramVec
	toolCalls      *prometheus.CounterVec
	loopIterations prometheus.Histogram
	warnings       prometheus.Counter
}

// NewExporter creates an exporter backed by its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{registry: registry}

	e.chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "ai",
			Name:      "chat_requests_total",
			Help:      "Total number of chat requests",
		},
		[]string{"mode", "status"},
	)

	e.chatLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studybuddy",
			Subsystem: "ai",
			Name:      "chat_latency_seconds",
			Help:      "Chat request latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	e.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "ai",
			Name:      "tool_calls_total",
			Help:      "Total number of tool calls",
		},
		[]string{"tool_name", "status"},
	)

	e.loopIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "studybuddy",
			Subsystem: "ai",
			Name:      "loop_iterations",
			Help:      "Model call iterations per chat turn",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
	)

	e.warnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studybuddy",
			Subsystem: "ai",
			Name:      "hallucination_warnings_total",
			Help:      "Responses that received a hallucination disclaimer",
		},
	)

	registry.MustRegister(
		e.chatRequests,
		e.chatLatency,
		e.toolCalls,
		e.loopIterations,
		e.warnings,
	)

	return e
}

// ObserveChat records one finished chat request. mode is "buffered" or
// "stream"; status is "success" or "error".
func (e *Exporter) ObserveChat(mode, status string, duration time.Duration) {
	if e == nil {
		return
	}
	e.chatRequests.WithLabelValues(mode, status).Inc()
	e.chatLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

// CountToolCall records one tool invocation outcome.
func (e *Exporter) CountToolCall(tool, status string) {
	if e == nil {
		return
	}
	e.toolCalls.WithLabelValues(tool, status).Inc()
}

// ObserveLoopIterations records how many model calls one turn took.
func (e *Exporter) ObserveLoopIterations(n int) {
	if e == nil {
		return
	}
	e.loopIterations.Observe(float64(n))
}

// CountWarning records one hallucination disclaimer.
func (e *Exporter) CountWarning() {
	if e == nil {
		return
	}
	e.warnings.Inc()
}

// Handler exposes the registry in Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	if e == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
