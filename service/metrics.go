package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for the reply pipeline. A nil *Metrics is valid and records nothing.
type Metrics struct {
	replies    *prometheus.CounterVec
	embeddings *prometheus.CounterVec
	generation prometheus.Histogram
	inFlight   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctachat_replies_total",
			Help: "Reply generation units by outcome (succeeded, fallback, failed).",
		}, []string{"outcome"}),
		embeddings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctachat_embeddings_total",
			Help: "Embedding attempts by outcome (attached, absent, failed).",
		}, []string{"outcome"}),
		generation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctachat_generation_seconds",
			Help:    "Latency of provider reply generation.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ctachat_background_replies_in_flight",
			Help: "Background reply units currently running.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.replies, m.embeddings, m.generation, m.inFlight)
	}
	return m
}

func (m *Metrics) reply(outcome string) {
	if m != nil {
		m.replies.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) embedding(outcome string) {
	if m != nil {
		m.embeddings.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeGeneration(seconds float64) {
	if m != nil {
		m.generation.Observe(seconds)
	}
}

func (m *Metrics) backgroundStarted() {
	if m != nil {
		m.inFlight.Inc()
	}
}

func (m *Metrics) backgroundDone() {
	if m != nil {
		m.inFlight.Dec()
	}
}
