// Package metrics exposes Prometheus instrumentation for the chat relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters for chat traffic and run outcomes.
type Metrics struct {
	// MessagesTotal counts chat messages by direction (inbound|outbound).
	MessagesTotal *prometheus.CounterVec

	// RunsTotal counts finished agent runs by terminal status.
	RunsTotal *prometheus.CounterVec

	// RunTimeoutsTotal counts runs abandoned by the poll deadline.
	RunTimeoutsTotal prometheus.Counter

	// RunDuration measures submit-to-terminal latency in seconds.
	RunDuration prometheus.Histogram

	// ActiveSessions tracks currently connected chat sessions.
	ActiveSessions prometheus.Gauge
}

// New creates and registers all metrics with reg. Pass
// prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundrychat_messages_total",
				Help: "Total number of chat messages by direction",
			},
			[]string{"direction"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundrychat_runs_total",
				Help: "Total number of agent runs by terminal status",
			},
			[]string{"status"},
		),
		RunTimeoutsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "foundrychat_run_timeouts_total",
				Help: "Total number of agent runs cancelled by the poll deadline",
			},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "foundrychat_run_duration_seconds",
				Help:    "Duration from run submission to terminal status in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "foundrychat_active_sessions",
				Help: "Number of currently connected chat sessions",
			},
		),
	}
}
