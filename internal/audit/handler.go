package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"

	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
)

// TimelineService defines the contract the handler needs.
type TimelineService interface {
	Timeline(ctx context.Context, filters TimelineFilters) (Result, error)
	Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
}

// Handler serves the activity log to managers.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	loc     *time.Location
	now     func() time.Time
}

// NewHandler builds the activity log handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc, now: time.Now}
}

// MountRoutes registers activity log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersManage))
		r.Get("/", h.handleTimeline)
		r.Get("/export", h.handleExport)
	})
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	records := toCSVRows(rows)
	body, err := gocsv.MarshalBytes(&records)
	if err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="activity-log.csv"`)
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// parseFilters defaults to the last seven days and caps the window at ninety.
func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	from, to, err := httpx.ParseDateRange(q, h.loc)
	if err != nil {
		return TimelineFilters{}, err
	}
	if to.IsZero() {
		now := h.now().In(h.loc)
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	}
	if from.IsZero() {
		from = to.Add(-defaultDateRange)
	}
	if to.Before(from) {
		return TimelineFilters{}, shared.ValidationError{Field: "to", Message: "must not be before from"}
	}
	if to.Sub(from) > maxDateRange {
		return TimelineFilters{}, shared.ValidationError{Field: "from", Message: "range must not exceed 90 days"}
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("per_page"))
	return TimelineFilters{
		From:     from,
		To:       to,
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		Action:   q.Get("action"),
		Page:     page,
		PageSize: size,
	}, nil
}
