package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Sessions.Inc()
	m.Commands.WithLabelValues("ok").Add(2)
	m.SessionState.WithLabelValues("active").Set(1)
	m.BringupStepSeconds.WithLabelValues("clocks").Observe(0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("ok")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["rftool_sessions_total"])
	assert.True(t, names["rftool_commands_total"])
	assert.True(t, names["rftool_session_state"])
	assert.True(t, names["rftool_bringup_step_seconds"])
}

func TestRegisteringTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestDiscardIsIndependent(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard()
		Discard()
	})
}
