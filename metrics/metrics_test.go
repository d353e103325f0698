package metrics_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-spendora-client/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.RecordRequest("GET", 200, 15*time.Millisecond)
	c.RecordRequest("GET", 401, 5*time.Millisecond)
	c.RecordRefresh(metrics.RefreshSuccess)
	c.RecordRefresh(metrics.RefreshFailed)
	c.RecordRefresh(metrics.RefreshFailed)
	c.RecordRetry(metrics.RetryAfterRefresh)
	c.RecordSessionEvent("login")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 5)

	n, err := testutil.GatherAndCount(reg, "spendora_client_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = testutil.GatherAndCount(reg, "spendora_client_token_refresh_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestCollectorDoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)
	require.Panics(t, func() { metrics.NewCollector(reg) })
}

func TestNop(t *testing.T) {
	var r metrics.Recorder = metrics.Nop{}
	require.NotPanics(t, func() {
		r.RecordRequest("GET", 200, time.Second)
		r.RecordRefresh(metrics.RefreshSuccess)
		r.RecordRetry(metrics.RetryStaleToken)
		r.RecordSessionEvent("logout")
	})
}
