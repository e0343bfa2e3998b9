package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

// IdempotencyHeader lets clients retry a sale submission safely.
const IdempotencyHeader = "Idempotency-Key"

// Handler manages sales endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
	loc       *time.Location
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator(), loc: loc}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesView))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/receipt", h.handleReceipt)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermSalesEdit))
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type saleRequest struct {
	Date              string          `json:"date" validate:"required"`
	CustomerID        int64           `json:"customer_id" validate:"required,gt=0"`
	ProductName       string          `json:"product_name" validate:"required"`
	ProductType       string          `json:"product_type" validate:"required"`
	Quantity          int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	PaymentMethod     string          `json:"payment_method" validate:"required"`
	SalesAgentID      int64           `json:"sales_agent_id" validate:"omitempty,gt=0"`
	TransportRequired bool            `json:"transport_required"`
}

func (req saleRequest) input(loc *time.Location, agentID int64) (SaleInput, error) {
	date, err := httpx.ParseDate("date", req.Date, loc)
	if err != nil {
		return SaleInput{}, err
	}
	if req.SalesAgentID > 0 {
		agentID = req.SalesAgentID
	}
	return SaleInput{
		Date:              date,
		CustomerID:        req.CustomerID,
		ProductName:       req.ProductName,
		ProductType:       req.ProductType,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		PaymentMethod:     req.PaymentMethod,
		TransportRequired: req.TransportRequired,
		AgentID:           agentID,
	}, nil
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := httpx.ParseDateRange(q, h.loc)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit, offset, page := shared.PageParams(q)
	filter := ListFilter{Search: q.Get("q"), From: from, To: to, Limit: limit, Offset: offset}
	if raw := q.Get("agent_id"); raw != "" {
		if filter.AgentID, err = httpx.ParseID(raw); err != nil {
			httpx.RespondError(w, shared.ValidationError{Field: "agent_id", Message: "must be a user id"})
			return
		}
	}
	sales, total, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[Sale]{Items: sales, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	receipt, err := h.service.Receipt(r.Context(), id)
	if err != nil {
		h.fail(w, "sale receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	input.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	sale, err := h.service.CreateSale(r.Context(), input)
	if err != nil {
		h.fail(w, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	sale, err := h.service.UpdateSale(r.Context(), id, input, p.UserID)
	if err != nil {
		h.fail(w, "update sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeleteSale(r.Context(), id, p.UserID); err != nil {
		h.fail(w, "delete sale", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (SaleInput, bool) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be valid JSON")
		return SaleInput{}, false
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return SaleInput{}, false
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	input, err := req.input(h.loc, p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return SaleInput{}, false
	}
	return input, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var stockErr *shared.InsufficientStockError
	switch {
	case shared.IsValidation(err), errors.Is(err, shared.ErrNotFound), errors.As(err, &stockErr),
		errors.Is(err, shared.ErrProductNotFound), errors.Is(err, shared.ErrIdempotencyConflict):
		h.logger.Info(op, slog.String("reason", err.Error()))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
