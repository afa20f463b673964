// Package observability exposes the bot's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	generations  *prometheus.CounterVec
	matches      *prometheus.CounterVec
	attachments  *prometheus.CounterVec
	degraded     *prometheus.CounterVec
	promptTokens prometheus.Histogram
	replyLatency prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muse",
			Name:      "generations_total",
			Help:      "Model generation calls by outcome.",
		}, []string{"outcome"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muse",
			Name:      "memory_matches_total",
			Help:      "Memory match attempts by result.",
		}, []string{"result"}),
		attachments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muse",
			Name:      "attachments_total",
			Help:      "Attachments processed by kind and result.",
		}, []string{"kind", "result"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "muse",
			Name:      "degraded_replies_total",
			Help:      "Replies that fell back to the configured error message.",
		}, []string{"reason"}),
		promptTokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "muse",
			Name:      "prompt_tokens",
			Help:      "Estimated tokens per rendered prompt.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		}),
		replyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "muse",
			Name:      "reply_duration_seconds",
			Help:      "Time from accepted event to reply.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.generations, m.matches, m.attachments, m.degraded, m.promptTokens, m.replyLatency)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Generation(outcome string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Match(result string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(result).Inc()
}

func (m *Metrics) Attachment(kind, result string) {
	if m == nil {
		return
	}
	m.attachments.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Degraded(reason string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(reason).Inc()
}

func (m *Metrics) PromptTokens(n int) {
	if m == nil {
		return
	}
	m.promptTokens.Observe(float64(n))
}

func (m *Metrics) ReplyLatency(seconds float64) {
	if m == nil {
		return
	}
	m.replyLatency.Observe(seconds)
}
