// Package metrics holds the Prometheus instruments shared by the NetFocus
// processes. Each process builds its own Metrics value on a private
// registry, so tests and multi-process deployments never fight over the
// default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all NetFocus Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	PacketsProcessed prometheus.Counter
	PacketsFailed    prometheus.Counter
	Splits           *prometheus.CounterVec
	Snapshots        *prometheus.CounterVec

	// Gate metrics
	GatePassed  prometheus.Counter
	GateDropped prometheus.Counter
}

// New creates a new metrics collector backed by a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		PacketsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netfocus_packets_processed_total",
			Help: "Total number of packets counted by the monitors",
		}),
		PacketsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netfocus_packets_failed_total",
			Help: "Total number of packets a monitor could not process",
		}),
		Splits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netfocus_cluster_splits_total",
			Help: "Total number of cluster splits per monitor",
		}, []string{"monitor"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netfocus_snapshots_total",
			Help: "Total number of snapshots written per monitor",
		}, []string{"monitor"}),

		GatePassed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netfocus_gate_passed_total",
			Help: "Total number of packets admitted by the gate",
		}),
		GateDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netfocus_gate_dropped_total",
			Help: "Total number of packets dropped by the gate",
		}),
	}

	m.registry.MustRegister(
		m.PacketsProcessed,
		m.PacketsFailed,
		m.Splits,
		m.Snapshots,
		m.GatePassed,
		m.GateDropped,
	)
	return m
}

// Handler returns the HTTP handler exposing this collector's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
