package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					matched = false
				}
			}
			if !matched {
				continue
			}
			switch {
			case metric.GetCounter() != nil:
				return metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("low_stock_scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("low_stock_scan").End(boom), boom)

	require.Equal(t, 1.0, gatherValue(t, reg, "mwf_jobs_total", map[string]string{"job": "low_stock_scan", "status": "success"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "mwf_jobs_total", map[string]string{"job": "low_stock_scan", "status": "failure"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "mwf_jobs_failures_total", map[string]string{"job": "low_stock_scan"}))
	require.Greater(t, gatherValue(t, reg, "mwf_job_last_success_timestamp_seconds", map[string]string{"job": "low_stock_scan"}), 0.0)
}

func TestSetLowStock(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.SetLowStock(3, 1)
	require.Equal(t, 3.0, gatherValue(t, reg, "mwf_low_stock_products", map[string]string{"state": "low"}))
	require.Equal(t, 1.0, gatherValue(t, reg, "mwf_low_stock_products", map[string]string{"state": "exhausted"}))

	m.AddNotifications("low_stock_scan", 2)
	m.AddNotifications("low_stock_scan", 0)
	require.Equal(t, 2.0, gatherValue(t, reg, "mwf_job_notifications_total", map[string]string{"job": "low_stock_scan"}))

	var nilMetrics *Metrics
	nilMetrics.AddNotifications("x", 1)
	nilMetrics.SetLowStock(1, 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
