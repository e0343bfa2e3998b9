package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	"github.com/mayondo/mwf/internal/inventory"
	jobmetrics "github.com/mayondo/mwf/internal/jobs"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// StockSummarySource reports the consolidated quantity of every product.
type StockSummarySource interface {
	StockSummary(ctx context.Context) ([]inventory.ProductStock, error)
}

// ManagerNotifier writes a message into every manager mailbox.
type ManagerNotifier interface {
	NotifyManagers(ctx context.Context, message string, category notify.Category) (int64, error)
}

// Locker obtains distributed locks.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// LowStockScanJob re-sends low stock and exhausted warnings for every product
// below the threshold. Only one worker runs the scan at a time.
type LowStockScanJob struct {
	Stock     StockSummarySource
	Notifier  ManagerNotifier
	Locker    Locker
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Threshold int
	LockTTL   time.Duration
}

// ScanResult summarises one scan.
type ScanResult struct {
	Low       int
	Exhausted int
	Skipped   bool
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(stock StockSummarySource, notifier ManagerNotifier, locker Locker, threshold int, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	if threshold <= 0 {
		threshold = inventory.DefaultLowStockThreshold
	}
	return &LowStockScanJob{
		Stock:     stock,
		Notifier:  notifier,
		Locker:    locker,
		Logger:    logger,
		Metrics:   metrics,
		Threshold: threshold,
		LockTTL:   5 * time.Minute,
	}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload ScheduledPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	_, err := j.Run(ctx)
	return err
}

// Run performs the scan under the distributed lock.
func (j *LowStockScanJob) Run(ctx context.Context) (result ScanResult, err error) {
	tracker := j.metrics().Track(TaskLowStockScan)
	defer func() {
		err = tracker.End(err)
	}()
	logger := j.logger()

	if j.Locker != nil {
		lock, err := j.Locker.Obtain(ctx, shared.LowStockScanLockKey, j.LockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Info("low stock scan already running elsewhere")
			return ScanResult{Skipped: true}, nil
		}
		if err != nil {
			return ScanResult{}, err
		}
		defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()
	}

	items, err := j.Stock.StockSummary(ctx)
	if err != nil {
		logger.Error("load stock summary", slog.Any("error", err))
		return ScanResult{}, err
	}
	for _, item := range items {
		ref := inventory.ProductRef{ID: item.ProductID, Name: item.ProductName, Type: item.ProductType}
		msg, ok := inventory.LowStockAlert(ref, item.Quantity, j.Threshold)
		if !ok {
			continue
		}
		if item.Quantity == 0 {
			result.Exhausted++
		} else {
			result.Low++
		}
		sent, err := j.Notifier.NotifyManagers(ctx, msg, notify.CategoryWarning)
		if err != nil {
			logger.Error("notify low stock", slog.String("product", ref.Label()), slog.Any("error", err))
			return result, err
		}
		j.metrics().AddNotifications(TaskLowStockScan, sent)
	}
	j.metrics().SetLowStock(result.Low, result.Exhausted)
	logger.Info("completed low stock scan", slog.Int("low", result.Low), slog.Int("exhausted", result.Exhausted))
	return result, nil
}

func (j *LowStockScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
