// Package metrics exposes Prometheus instrumentation for the ingestion and
// publication pipelines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	PollTotal     *prometheus.CounterVec
	MessagesTotal *prometheus.CounterVec
	FetchBytes    prometheus.Counter
	PollDuration  prometheus.Summary
	PostsTotal    *prometheus.CounterVec
	UnpostedGauge prometheus.Gauge
	ReleasedStuck prometheus.Counter
}

// New builds the collector set on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "poll_total",
			Help:      "Poll passes by result (ok, fetch_error, decode_error)",
		}, []string{"result"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "messages_total",
			Help:      "Feed messages processed by outcome (standalone, linked, skipped, failed)",
		}, []string{"outcome"}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "fetch_bytes_total",
			Help:      "Raw feed bytes downloaded",
		}),
		PollDuration: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: "alerts",
			Name:      "poll_duration_seconds",
			Help:      "Time spent per poll pass",
		}),
		PostsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "posts_total",
			Help:      "Publication attempts by result (ok, error)",
		}, []string{"result"}),
		UnpostedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alerts",
			Name:      "unposted_incidents",
			Help:      "Incidents awaiting publication",
		}),
		ReleasedStuck: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alerts",
			Name:      "released_stuck_total",
			Help:      "Publication claims recovered from dead posters",
		}),
	}
	reg.MustRegister(
		m.PollTotal, m.MessagesTotal, m.FetchBytes, m.PollDuration,
		m.PostsTotal, m.UnpostedGauge, m.ReleasedStuck,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
