package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/mayondo/mwf/internal/platform/httpx"
)

// QueueInspector reads queue state.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability and manual triggers.
type Handler struct {
	inspector QueueInspector
	client    *Client
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. client may be nil,
// in which case the trigger routes answer 503.
func NewHandler(inspector QueueInspector, client *Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, client: client, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/low-stock-scan", h.trigger(TaskLowStockScan, func(ctx context.Context) (*asynq.TaskInfo, error) {
		return h.client.EnqueueLowStockScan(ctx, time.Now())
	}))
	r.Post("/dashboard-warmup", h.trigger(TaskDashboardWarmup, func(ctx context.Context) (*asynq.TaskInfo, error) {
		return h.client.EnqueueDashboardWarmup(ctx, time.Now())
	}))
	r.Post("/idempotency-cleanup", h.trigger(TaskIdempotencyCleanup, func(ctx context.Context) (*asynq.TaskInfo, error) {
		return h.client.EnqueueIdempotencyCleanup(ctx, DefaultIdempotencyRetention)
	}))
}

type enqueuedResponse struct {
	ID    string `json:"id"`
	Queue string `json:"queue"`
	Type  string `json:"type"`
}

type queueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Paused    bool   `json:"paused"`
}

func (h *Handler) trigger(name string, enqueue func(context.Context) (*asynq.TaskInfo, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.client == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue not configured")
			return
		}
		info, err := enqueue(r.Context())
		if errors.Is(err, asynq.ErrDuplicateTask) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "job already queued")
			return
		}
		if err != nil {
			h.logger.Error("enqueue job", slog.String("job", name), slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unavailable")
			return
		}
		h.logger.Info("job enqueued", slog.String("job", name), slog.String("id", info.ID))
		httpx.JSON(w, http.StatusAccepted, enqueuedResponse{ID: info.ID, Queue: info.Queue, Type: name})
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	out := queueHealth{Queue: QueueDefault}
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "job queue unavailable")
		return
	}
	if info != nil {
		out = queueHealth{
			Queue:     info.Queue,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Paused:    info.Paused,
		}
	}
	httpx.JSON(w, http.StatusOK, out)
}
