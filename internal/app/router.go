package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mayondo/mwf/internal/audit"
	"github.com/mayondo/mwf/internal/auth"
	"github.com/mayondo/mwf/internal/dashboard"
	"github.com/mayondo/mwf/internal/inventory"
	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/notify"
	"github.com/mayondo/mwf/internal/observability"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/reports"
	"github.com/mayondo/mwf/internal/sales"
	"github.com/mayondo/mwf/internal/search"
	"github.com/mayondo/mwf/internal/shared"
	"github.com/mayondo/mwf/internal/users"
	"github.com/mayondo/mwf/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	CSRFManager         *shared.CSRFManager
	RBACMiddleware      rbac.Middleware
	AuthHandler         *auth.Handler
	InventoryHandler    *inventory.Handler
	SalesHandler        *sales.Handler
	MasterDataHandler   *masterdata.Handler
	NotificationHandler *notify.Handler
	UsersHandler        *users.Handler
	DashboardHandler    *dashboard.Handler
	SearchHandler       *search.Handler
	ReportsHandler      *reports.Handler
	AuditHandler        *audit.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/stock", params.InventoryHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
	r.Route("/notifications", params.NotificationHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	r.Route("/search", params.SearchHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	r.Route("/audit", params.AuditHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAll(shared.PermReportsView))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
