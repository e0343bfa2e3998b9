package perf

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/mayondo/mwf/internal/inventory"
	jobmetrics "github.com/mayondo/mwf/internal/jobs"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/jobs"
)

type catalogueSummary struct {
	items []inventory.ProductStock
	err   error
}

func (c *catalogueSummary) StockSummary(ctx context.Context) ([]inventory.ProductStock, error) {
	return c.items, c.err
}

type countingNotifier struct{ sent int }

func (c *countingNotifier) NotifyManagers(ctx context.Context, message string, category notify.Category) (int64, error) {
	c.sent++
	return 1, nil
}

func fullCatalogue() []inventory.ProductStock {
	var items []inventory.ProductStock
	for i, name := range masterdata.ProductNames() {
		for j, typ := range masterdata.ProductTypes() {
			items = append(items, inventory.ProductStock{
				ProductID:   int64(i*10 + j + 1),
				ProductName: name,
				ProductType: typ,
				Quantity:    (i + j) * 2,
			})
		}
	}
	return items
}

func TestLowStockScanThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	source := &catalogueSummary{items: fullCatalogue()}
	notifier := &countingNotifier{}
	job := jobs.NewLowStockScanJob(source, notifier, nil, 5, nil, metrics)

	for i := 0; i < 60; i++ {
		if _, err := job.Run(context.Background()); err != nil {
			t.Fatalf("unexpected scan error: %v", err)
		}
	}

	// A couple of database outages must surface as failures.
	source.err = errors.New("connection reset")
	for i := 0; i < 3; i++ {
		if _, err := job.Run(context.Background()); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "mwf_jobs_total", map[string]string{"job": jobs.TaskLowStockScan, "status": "success"})
	failure := metricValue(t, families, "mwf_jobs_total", map[string]string{"job": jobs.TaskLowStockScan, "status": "failure"})
	if success+failure == 0 {
		t.Fatal("no scan executions recorded")
	}
	if ratio := success / (success + failure); ratio < 0.9 {
		t.Fatalf("scan success ratio too low: %f", ratio)
	}
	if mean := histogramMean(t, families, "mwf_job_duration_seconds", map[string]string{"job": jobs.TaskLowStockScan}); mean > 0.5 {
		t.Fatalf("scan duration above budget: %f", mean)
	}
	if notifier.sent == 0 {
		t.Fatal("expected low stock warnings")
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok && lp.GetValue() != val {
			return false
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
