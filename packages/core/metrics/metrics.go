// Package metrics holds the Prometheus collectors of the judging engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	submissions       *prometheus.CounterVec
	roundCloses       *prometheus.CounterVec
	eliminatedTeams   prometheus.Counter
	roundsCreated     prometheus.Counter
	operationDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hackjudge",
			Name:      "score_submissions_total",
			Help:      "Score submissions by outcome.",
		}, []string{"outcome"}),
		roundCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hackjudge",
			Name:      "round_closes_total",
			Help:      "Closed rounds by finality.",
		}, []string{"final"}),
		eliminatedTeams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hackjudge",
			Name:      "eliminated_teams_total",
			Help:      "Teams eliminated when closing rounds.",
		}),
		roundsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hackjudge",
			Name:      "rounds_created_total",
			Help:      "Rounds created, first round included.",
		}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hackjudge",
			Name:      "operation_duration_seconds",
			Help:      "Latency of engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.submissions, m.roundCloses, m.eliminatedTeams, m.roundsCreated, m.operationDuration)
	return m
}

// SubmissionOutcome records a submission result; outcome is an error code or "ok".
func (m *Metrics) SubmissionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RoundClosed(final bool, eliminated int) {
	if m == nil {
		return
	}
	label := "false"
	if final {
		label = "true"
	}
	m.roundCloses.WithLabelValues(label).Inc()
	m.eliminatedTeams.Add(float64(eliminated))
}

func (m *Metrics) RoundCreated() {
	if m == nil {
		return
	}
	m.roundsCreated.Inc()
}

// ObserveSince records the time elapsed since start for operation.
func (m *Metrics) ObserveSince(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
