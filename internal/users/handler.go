package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersManage))
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Put("/{id}/active", h.setActive)
	})
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required"`
}

type activeRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": users})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	user, err := h.service.CreateUser(r.Context(), CreateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		ActorID:  p.UserID,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	h.logger.Info("user created", slog.Int64("user_id", user.ID), slog.Int64("actor_id", p.UserID))
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req activeRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.SetActive(r.Context(), id, *req.IsActive, p.UserID); err != nil {
		h.fail(w, "set user active", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be valid JSON")
		return false
	}
	if err := httpx.ValidateStruct(h.validator, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.IsValidation(err) || errors.Is(err, shared.ErrNotFound) {
		h.logger.Info(op, slog.String("reason", err.Error()))
	} else {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
