package notify

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

// Handler exposes the notification endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermNotificationsView))
	r.Get("/", h.handleUnread)
	r.Get("/activity", h.handleActivity)
	r.Post("/{id}/read", h.handleMarkRead)
	r.Post("/read-all", h.handleMarkAllRead)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	items, err := h.service.ActivityFeed(r.Context(), p)
	if err != nil {
		h.logger.Error("activity feed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activities": items})
}

func (h *Handler) handleUnread(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	summary, err := h.service.Unread(r.Context(), p)
	if err != nil {
		h.logger.Error("unread notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.MarkRead(r.Context(), p, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	p, _ := rbac.PrincipalFromContext(r.Context())
	n, err := h.service.MarkAllRead(r.Context(), p)
	if err != nil {
		h.logger.Error("mark all read", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "updated_count": n})
}
