package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mayondo/mwf/internal/dashboard"
	jobmetrics "github.com/mayondo/mwf/internal/jobs"
)

// StatsWarmer recomputes cached dashboard statistics.
type StatsWarmer interface {
	Stats(ctx context.Context) (dashboard.Stats, error)
}

// DashboardWarmupJob keeps the dashboard cache populated so the first
// request after a bump does not pay for the aggregation.
type DashboardWarmupJob struct {
	Dashboard StatsWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(warmer StatsWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Dashboard: warmer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDashboardWarmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Dashboard == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskDashboardWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	start := time.Now()
	stats, err := j.Dashboard.Stats(ctx)
	if err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("dashboard warmed", slog.Int("sales", stats.TotalSales), slog.Duration("duration", time.Since(start)))
	}
	return nil
}
