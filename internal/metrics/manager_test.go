package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RegistersCollectors(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterRequests.WithLabelValues("GET", "200").Inc()
	m.CounterGatewayFailures.WithLabelValues("injuries", "insert").Add(2)
	m.GaugeSessions.Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterGatewayFailures.WithLabelValues("injuries", "insert")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.GaugeSessions))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "tracker_test_server_request")
	assert.Contains(t, names, "tracker_test_server_gateway_failures")
	assert.Contains(t, names, "tracker_test_server_open_sessions")
}

func TestSetupPrometheus_IncludesRuntimeCollectors(t *testing.T) {
	reg := SetupPrometheus()
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
