package reports

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler serves manager reports.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportsView))
		r.Get("/sales", h.handleSales)
		r.Get("/stock", h.handleStock)
	})
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request) (Period, Format, bool) {
	q := r.URL.Query()
	from, to, err := httpx.ParseDateRange(q, h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return Period{}, "", false
	}
	format, err := ParseFormat(q.Get("format"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError{Field: "format", Message: "must be json, csv or xlsx"})
		return Period{}, "", false
	}
	return Period{From: from, To: to}, format, true
}

func (h *Handler) handleSales(w http.ResponseWriter, r *http.Request) {
	period, format, ok := h.params(w, r)
	if !ok {
		return
	}
	report, err := h.service.SalesReport(r.Context(), period)
	if err != nil {
		h.logger.Error("sales report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.write(w, format, "sales", report, func(buf *bytes.Buffer) error {
		if format == FormatCSV {
			return WriteSalesCSV(buf, report)
		}
		return WriteSalesXLSX(buf, report)
	})
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	period, format, ok := h.params(w, r)
	if !ok {
		return
	}
	report, err := h.service.StockReport(r.Context(), period)
	if err != nil {
		h.logger.Error("stock report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.write(w, format, "stock", report, func(buf *bytes.Buffer) error {
		if format == FormatCSV {
			return WriteStockCSV(buf, report)
		}
		return WriteStockXLSX(buf, report)
	})
}

// write buffers file formats so a render failure can still produce a problem response.
func (h *Handler) write(w http.ResponseWriter, format Format, name string, report any, render func(*bytes.Buffer) error) {
	if format == FormatJSON {
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.logger.Error("render report", slog.String("report", name), slog.String("format", string(format)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	contentType := contentTypeCSV
	if format == FormatXLSX {
		contentType = contentTypeXLSX
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_report.%s", name, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
