package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// manualTriggerWindow stops repeated operator triggers from stacking up the
// same task while one is still queued.
const manualTriggerWindow = time.Minute

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// Enqueue submits task to the default queue. Duplicate submissions within a
// minute are rejected with asynq.ErrDuplicateTask.
func (c *Client) Enqueue(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(manualTriggerWindow))
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return info, nil
}

// EnqueueLowStockScan queues an immediate low stock scan.
func (c *Client) EnqueueLowStockScan(ctx context.Context, at time.Time) (*asynq.TaskInfo, error) {
	task, err := NewLowStockScanTask(at)
	if err != nil {
		return nil, err
	}
	return c.Enqueue(ctx, task)
}

// EnqueueDashboardWarmup queues a dashboard cache refresh.
func (c *Client) EnqueueDashboardWarmup(ctx context.Context, at time.Time) (*asynq.TaskInfo, error) {
	task, err := NewDashboardWarmupTask(at)
	if err != nil {
		return nil, err
	}
	return c.Enqueue(ctx, task)
}

// EnqueueIdempotencyCleanup queues a purge of keys older than retention.
func (c *Client) EnqueueIdempotencyCleanup(ctx context.Context, retention time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewIdempotencyCleanupTask(retention)
	if err != nil {
		return nil, err
	}
	return c.Enqueue(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
