// Package metrics holds the Prometheus collectors of the bracket engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cue_bracket"

type Metrics struct {
	Generations   *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	SweepItems    *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bracket_generations_total",
			Help:      "Bracket generation attempts by generator and outcome.",
		}, []string{"generator", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_transitions_total",
			Help:      "Match state transitions by kind and outcome.",
		}, []string{"transition", "outcome"}),
		SweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_items_total",
			Help:      "Matches handled by background sweeps by sweep and outcome.",
		}, []string{"sweep", "outcome"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent in one sweep pass.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sweep"}),
	}

	if reg != nil {
		reg.MustRegister(m.Generations, m.Transitions, m.SweepItems, m.SweepDuration)
	}
	return m
}

// Outcome labels shared by the counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

func (m *Metrics) ObserveGeneration(generator, outcome string) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(generator, outcome).Inc()
}

func (m *Metrics) ObserveTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(transition, outcome).Inc()
}

func (m *Metrics) ObserveSweepItem(sweep, outcome string) {
	if m == nil {
		return
	}
	m.SweepItems.WithLabelValues(sweep, outcome).Inc()
}

func (m *Metrics) ObserveSweepDuration(sweep string, seconds float64) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(sweep).Observe(seconds)
}
