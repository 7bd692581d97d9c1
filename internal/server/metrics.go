package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instrumentation exported on /metrics. Each Metrics value
// carries its own registry so tests can construct handlers independently.
type Metrics struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	rowsIngested     prometheus.Counter
	rowsSkipped      prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forensiq",
			Name:      "analyses_total",
			Help:      "Completed analysis requests by outcome.",
		}, []string{"status"}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "forensiq",
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of the detection pipeline per batch.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forensiq",
			Name:      "transactions_ingested_total",
			Help:      "CSV rows accepted across all uploads.",
		}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forensiq",
			Name:      "transactions_skipped_total",
			Help:      "CSV rows rejected across all uploads.",
		}),
	}
	registry.MustRegister(m.analysesTotal, m.analysisDuration, m.rowsIngested, m.rowsSkipped)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeAnalysis(status string, seconds float64, ingested, skipped int) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.analysisDuration.Observe(seconds)
	}
	m.rowsIngested.Add(float64(ingested))
	m.rowsSkipped.Add(float64(skipped))
}
