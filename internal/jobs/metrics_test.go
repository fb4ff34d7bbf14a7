package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	for i := 0; i < 5; i++ {
		tracker := metrics.Track("fleet:cleanup")
		require.NoError(t, tracker.End(nil))
	}

	tracker := metrics.Track("fleet:cleanup")
	wantErr := errors.New("connection reset")
	require.ErrorIs(t, tracker.End(wantErr), wantErr)

	families, err := reg.Gather()
	require.NoError(t, err)

	success := counterValue(t, families, "fleetboard_jobs_total", map[string]string{"job": "fleet:cleanup", "status": "success"})
	failure := counterValue(t, families, "fleetboard_jobs_total", map[string]string{"job": "fleet:cleanup", "status": "failure"})
	require.Equal(t, 5.0, success)
	require.Equal(t, 1.0, failure)

	failures := counterValue(t, families, "fleetboard_jobs_failures_total", map[string]string{"job": "fleet:cleanup"})
	require.Equal(t, 1.0, failures)
}

func TestAddReapedFleets(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	metrics.AddReapedFleets(7)
	metrics.AddReapedFleets(0)
	metrics.AddReapedFleets(-3)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Equal(t, 7.0, counterValue(t, families, "fleetboard_fleets_reaped_total", nil))
}

func TestNilMetricsTrackerIsSafe(t *testing.T) {
	var metrics *Metrics
	tracker := metrics.Track("fleet:cleanup")
	require.NoError(t, tracker.End(nil))
	metrics.AddReapedFleets(10)
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if !labelsMatch(metric, labels) {
				continue
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	have := map[string]string{}
	for _, pair := range metric.GetLabel() {
		have[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if have[k] != v {
			return false
		}
	}
	return true
}
