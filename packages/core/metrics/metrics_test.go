package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SubmissionOutcome("ok")
	m.SubmissionOutcome("ok")
	m.SubmissionOutcome("round_closed")
	m.RoundClosed(false, 3)
	m.RoundClosed(true, 0)
	m.RoundCreated()
	m.ObserveSince("close_round", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("round_closed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundCloses.WithLabelValues("true")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.eliminatedTeams))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roundsCreated))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SubmissionOutcome("ok")
		m.RoundClosed(true, 0)
		m.RoundCreated()
		m.ObserveSince("x", time.Now())
	})
}
