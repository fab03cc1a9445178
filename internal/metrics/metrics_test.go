package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SettlementVerdicts.WithLabelValues("rejected").Inc()
	m.CartRetries.Add(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SettlementVerdicts.WithLabelValues("rejected")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CartRetries))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
