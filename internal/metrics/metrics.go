// Package metrics provides Prometheus metrics for the companion server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	memoryLookups   *prometheus.CounterVec
	memoryLatency   prometheus.Histogram
	memoryReturned  prometheus.Histogram
	llmCalls        *prometheus.CounterVec
	llmLatency      prometheus.Histogram
	emailsSent      *prometheus.CounterVec
	relationshipUps prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		memoryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "memory_lookups_total",
			Help:      "Memory lookup requests by outcome (ok, not_found, error).",
		}, []string{"outcome"}),
		memoryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "companion",
			Name:      "memory_lookup_duration_seconds",
			Help:      "Memory lookup latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		memoryReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "companion",
			Name:      "memory_results_returned",
			Help:      "Number of memories returned per lookup.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "llm_calls_total",
			Help:      "LLM calls by kind (chat, analysis) and outcome.",
		}, []string{"kind", "outcome"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "companion",
			Name:      "llm_call_duration_seconds",
			Help:      "LLM call latency in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "emails_sent_total",
			Help:      "Transactional emails by template and outcome.",
		}, []string{"template", "outcome"}),
		relationshipUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "companion",
			Name:      "relationship_updates_total",
			Help:      "Relationship summary upserts.",
		}),
	}
	registry.MustRegister(
		m.memoryLookups,
		m.memoryLatency,
		m.memoryReturned,
		m.llmCalls,
		m.llmLatency,
		m.emailsSent,
		m.relationshipUps,
	)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveMemoryLookup records one memory lookup. Nil-safe so callers can run
// without metrics wired.
func (m *Metrics) ObserveMemoryLookup(outcome string, returned int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.memoryLookups.WithLabelValues(outcome).Inc()
	m.memoryLatency.Observe(elapsed.Seconds())
	m.memoryReturned.Observe(float64(returned))
}

// ObserveLLMCall records one LLM call.
func (m *Metrics) ObserveLLMCall(kind string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(kind, outcome).Inc()
	m.llmLatency.Observe(elapsed.Seconds())
}

// ObserveEmail records one transactional email attempt.
func (m *Metrics) ObserveEmail(template string, outcome string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(template, outcome).Inc()
}

// ObserveRelationshipUpdate records one relationship summary upsert.
func (m *Metrics) ObserveRelationshipUpdate() {
	if m == nil {
		return
	}
	m.relationshipUps.Inc()
}
