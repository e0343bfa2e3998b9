package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mayondo/mwf/internal/app"
	"github.com/mayondo/mwf/internal/audit"
	"github.com/mayondo/mwf/internal/auth"
	"github.com/mayondo/mwf/internal/dashboard"
	"github.com/mayondo/mwf/internal/docnum"
	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/observability"
	"github.com/mayondo/mwf/internal/platform/cache"
	"github.com/mayondo/mwf/internal/platform/db"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/reports"
	"github.com/mayondo/mwf/internal/sales"
	"github.com/mayondo/mwf/internal/search"
	"github.com/mayondo/mwf/internal/shared"
	"github.com/mayondo/mwf/internal/users"
	"github.com/mayondo/mwf/jobs"
)

const sessionCookie = "mwf_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, sessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()
	ids := docnum.NewGenerator(loc)

	rbacService := rbac.NewService(rbac.NewPGStore(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersService := users.NewService(users.NewRepository(dbpool), auditLogger)

	inventoryRepo := inventory.NewRepository(dbpool, ids)
	salesRepo := sales.NewRepository(dbpool, ids)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(salesRepo, inventoryRepo, usersService, dashboardCache, logger)

	inventoryService := inventory.NewService(inventoryRepo, auditLogger, metrics, dashboardService, inventory.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
		RetryLimit:        cfg.SaleRetryLimit,
		Location:          loc,
	})
	salesService := sales.NewService(salesRepo, auditLogger, idempotencyStore, metrics, dashboardService, sales.ServiceConfig{
		LowStockThreshold: cfg.LowStockThreshold,
		RetryLimit:        cfg.SaleRetryLimit,
		Location:          loc,
	})

	masterdataService := masterdata.NewService(masterdata.NewRepository(dbpool))
	notifyService := notify.NewService(notify.NewRepository(dbpool))
	searchService := search.NewService(salesService, inventoryService)
	reportsService := reports.NewService(salesRepo, inventoryRepo, cfg.LowStockThreshold)

	queueOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(queueOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(queueOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		RBACMiddleware:      rbacMiddleware,
		AuthHandler:         authHandler,
		InventoryHandler:    inventory.NewHandler(logger, inventoryService, rbacMiddleware, loc),
		SalesHandler:        sales.NewHandler(logger, salesService, rbacMiddleware, loc),
		MasterDataHandler:   masterdata.NewHandler(logger, masterdataService, rbacMiddleware),
		NotificationHandler: notify.NewHandler(logger, notifyService, rbacMiddleware),
		UsersHandler:        users.NewHandler(logger, usersService, rbacMiddleware),
		DashboardHandler:    dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		SearchHandler:       search.NewHandler(logger, searchService, rbacMiddleware),
		ReportsHandler:      reports.NewHandler(logger, reportsService, rbacMiddleware, loc),
		AuditHandler:        audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware, loc),
		JobHandler:          jobs.NewHandler(inspector, jobClient, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("location", loc.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
