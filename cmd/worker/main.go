package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mayondo/mwf/internal/app"
	"github.com/mayondo/mwf/internal/dashboard"
	"github.com/mayondo/mwf/internal/docnum"
	"github.com/mayondo/mwf/internal/inventory"
	jobmetrics "github.com/mayondo/mwf/internal/jobs"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/platform/cache"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/sales"
	"github.com/mayondo/mwf/internal/shared"
	"github.com/mayondo/mwf/internal/users"
	"github.com/mayondo/mwf/jobs"
)

const (
	idempotencyCleanupCron = "0 3 * * *"
	dashboardWarmupCron    = "*/15 * * * *"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	loc := cfg.Location()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	ids := docnum.NewGenerator(loc)
	inventoryRepo := inventory.NewRepository(pool, ids)
	salesRepo := sales.NewRepository(pool, ids)
	usersService := users.NewService(users.NewRepository(pool), shared.NewAuditLogger(pool))
	dashboardService := dashboard.NewService(salesRepo, inventoryRepo, usersService, dashboard.NewCache(redisClient, cfg.DashboardCacheTTL), logger)

	scanJob := jobs.NewLowStockScanJob(inventoryRepo, notify.NewRepository(pool), cache.NewLocker(redisClient), cfg.LowStockThreshold, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, metrics)
	warmupJob := jobs.NewDashboardWarmupJob(dashboardService, logger, metrics)

	now := time.Now().In(loc)
	scanTask, err := jobs.NewLowStockScanTask(now)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewDashboardWarmupTask(now)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Location:  loc,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: scanJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: idempotencyCleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: dashboardWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("low_stock_cron", cfg.LowStockScanCron))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
