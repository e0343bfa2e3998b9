package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan re-checks every product against the low stock threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
	// TaskIdempotencyCleanup purges expired sale submission keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
	// TaskDashboardWarmup recomputes the cached dashboard statistics.
	TaskDashboardWarmup = "dashboard:warmup"
)

// ScheduledPayload carries scheduling metadata shared by the periodic tasks.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// IdempotencyCleanupPayload configures the retention window.
type IdempotencyCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewLowStockScanTask constructs the scan task.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskLowStockScan, ScheduledPayload{ScheduledFor: at})
}

// NewDashboardWarmupTask constructs the warmup task.
func NewDashboardWarmupTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskDashboardWarmup, ScheduledPayload{ScheduledFor: at})
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	return newTask(TaskIdempotencyCleanup, IdempotencyCleanupPayload{Retention: retention})
}

func newTask(typ string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(QueueDefault)), nil
}
