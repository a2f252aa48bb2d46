// internal/monitor/monitor.go

// Package monitor exposes the service's Prometheus metrics.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gauges and counters the engine and transport
// update. A nil *Metrics is valid and records nothing, which keeps
// tests free of registry bookkeeping.
type Metrics struct {
	ConnectedClients prometheus.Gauge
	ActiveSessions   prometheus.Gauge
	Commands         prometheus.Counter
	CommandErrors    prometheus.Counter
}

// NewMetrics registers the service metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of connected WebSocket clients",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live game sessions",
		}),
		Commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total number of commands dispatched to the engine",
		}),
		CommandErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Total number of commands rejected by the engine",
		}),
	}

	prometheus.MustRegister(
		m.ConnectedClients,
		m.ActiveSessions,
		m.Commands,
		m.CommandErrors,
	)
	return m
}

// ClientConnected adjusts the connected-clients gauge.
func (m *Metrics) ClientConnected(delta float64) {
	if m != nil {
		m.ConnectedClients.Add(delta)
	}
}

// SessionCreated adjusts the active-sessions gauge.
func (m *Metrics) SessionCreated(delta float64) {
	if m != nil {
		m.ActiveSessions.Add(delta)
	}
}

// CommandHandled counts one dispatched command and whether it was
// rejected.
func (m *Metrics) CommandHandled(rejected bool) {
	if m == nil {
		return
	}
	m.Commands.Inc()
	if rejected {
		m.CommandErrors.Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
