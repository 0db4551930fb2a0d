package server

import (
	"net/http"

	"edge_gate/internal/action"
	"edge_gate/internal/dataType"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts router decisions on a private registry
type Metrics struct {
	registry   *prometheus.Registry
	decisions  *prometheus.CounterVec
	denials    *prometheus.CounterVec
	unresolved prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_gate_decisions_total",
				Help: "Routing decisions by outcome",
			},
			[]string{"outcome"},
		),
		denials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edge_gate_whitelist_denials_total",
				Help: "Clients stopped by the whitelist, by mode",
			},
			[]string{"mode"},
		),
		unresolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "edge_gate_unresolved_client_total",
				Help: "Requests for which no client address could be resolved",
			},
		),
	}
	m.registry.MustRegister(m.decisions, m.denials, m.unresolved)
	return m
}

func (m *Metrics) Observe(decision *action.Decision, reqData dataType.UserRequest) {
	result := decision.Get()
	m.decisions.WithLabelValues(result.String()).Inc()
	switch result {
	case action.Deny:
		m.denials.WithLabelValues(string(dataType.ModeDeny)).Inc()
	case action.RewriteURI:
		m.denials.WithLabelValues(string(dataType.ModeRewrite)).Inc()
	}
	if reqData.Request != nil && reqData.RemoteIP == "" {
		m.unresolved.Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
