package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Failover("ListTeams")
	m.Failover("ListTeams")
	m.Failover("GetTeam")
	m.CascadeFailed()
	m.PushDelivered(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.failovers.WithLabelValues("ListTeams")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failovers.WithLabelValues("GetTeam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cascadeFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pushDeliveries.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Failover("x")
		m.ObserveStore("file", "x", true, time.Millisecond)
		m.CascadeFailed()
		m.PushDelivered(true)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveStore("postgres", "GetTeam", true, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gearguard_store_operation_seconds")
}
