// event/metrics.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package event

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects dispatcher statistics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	dispatched *prometheus.CounterVec
	failures   *prometheus.CounterVec
	depth      prometheus.Gauge
}

// NewMetrics creates the dispatcher's collectors and, if reg is non-nil,
// registers them with it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapcore_events_dispatched_total",
				Help: "Number of map events dispatched, by type.",
			},
			[]string{"type"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mapcore_listener_failures_total",
				Help: "Number of map event listeners that panicked, by event type.",
			},
			[]string{"type"},
		),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mapcore_listener_scope_depth",
			Help: "Number of listener scope frames pushed above the base frame.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.dispatched, m.failures, m.depth)
	}
	return m
}

func (m *Metrics) dispatch(t Type) {
	if m != nil {
		m.dispatched.With(prometheus.Labels{"type": t.String()}).Inc()
	}
}

func (m *Metrics) failure(t Type) {
	if m != nil {
		m.failures.With(prometheus.Labels{"type": t.String()}).Inc()
	}
}

func (m *Metrics) setDepth(d int) {
	if m != nil {
		m.depth.Set(float64(d))
	}
}
