package telemetry

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistersEveryCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.FramesSent.Add(3)
	metrics.FramesRetried.Inc()
	metrics.FramesFailed.Inc()
	metrics.EventsByKind.WithLabelValues("coin_accepted").Inc()
	metrics.PayoutPlanReplans.Inc()
	metrics.PoolOccupancy.WithLabelValues("currency").Set(2)

	require.Equal(t, float64(3), testutil.ToFloat64(metrics.FramesSent))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.FramesRetried))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.PayoutPlanReplans))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsByKind.WithLabelValues("coin_accepted")))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.PoolOccupancy.WithLabelValues("currency")))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 6, count)
}

func TestServerHandlerServesMetricsEndpoint(t *testing.T) {
	server := NewServer(":0")
	server.Metrics.FramesSent.Add(1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	require.Equal(t, 200, rr.Code)
	require.Contains(t, rr.Body.String(), "cctalkd_transport_frames_sent_total")
	require.Contains(t, rr.Body.String(), "cctalkd_host_cpu_percent")
}

func TestSampleHostHealthReturnsPlausibleValues(t *testing.T) {
	health, err := SampleHostHealth()
	require.NoError(t, err)
	require.GreaterOrEqual(t, health.CPUPercent, 0.0)
	require.GreaterOrEqual(t, health.MemoryUsedPercent, 0.0)
	require.LessOrEqual(t, health.MemoryUsedPercent, 100.0)
}
