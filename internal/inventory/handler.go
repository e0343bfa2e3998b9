package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mayondo/mwf/internal/masterdata"
	"github.com/mayondo/mwf/internal/platform/httpx"
	"github.com/mayondo/mwf/internal/rbac"
	"github.com/mayondo/mwf/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
	loc       *time.Location
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator(), loc: loc}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStockView))
		r.Get("/", h.handleList)
		r.Get("/summary", h.handleSummary)
		r.Get("/available", h.handleAvailable)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermStockEdit))
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

type lotRequest struct {
	Date        string          `json:"date" validate:"required"`
	ProductName string          `json:"product_name" validate:"required"`
	ProductType string          `json:"product_type" validate:"required"`
	Quantity    *int            `json:"quantity" validate:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	SupplierID  int64           `json:"supplier_id" validate:"required,gt=0"`
	Origin      string          `json:"origin" validate:"required"`
}

func (req lotRequest) input(loc *time.Location, actorID int64) (ReceiptInput, error) {
	date, err := httpx.ParseDate("date", req.Date, loc)
	if err != nil {
		return ReceiptInput{}, err
	}
	return ReceiptInput{
		Date:        date,
		ProductName: req.ProductName,
		ProductType: req.ProductType,
		Quantity:    *req.Quantity,
		UnitCost:    req.UnitCost,
		SupplierID:  req.SupplierID,
		Origin:      req.Origin,
		ActorID:     actorID,
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
	lots, total, err := h.service.ListLots(r.Context(), LotFilter{Search: q.Get("q"), From: from, To: to, Limit: limit, Offset: offset})
	if err != nil {
		h.fail(w, "list stock lots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[Lot]{Items: lots, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.StockSummary(r.Context())
	if err != nil {
		h.fail(w, "stock summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"threshold": h.service.Threshold(), "products": items})
}

func (h *Handler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, err := masterdata.ParseProductName(q.Get("product_name"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError{Field: "product_name", Message: "is not a known product"})
		return
	}
	typ, err := masterdata.ParseProductType(q.Get("product_type"))
	if err != nil {
		httpx.RespondError(w, shared.ValidationError{Field: "product_type", Message: "must be Wood or Furniture"})
		return
	}
	ref := ProductRef{Name: name, Type: typ}
	qty, err := h.service.AvailableQuantity(r.Context(), ref)
	if err != nil {
		h.fail(w, "available quantity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product":   ref.Label(),
		"available": qty,
		"level":     Classify(qty, h.service.Threshold()),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.GetLot(r.Context(), id)
	if err != nil {
		h.fail(w, "get stock lot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decode(w, r)
	if !ok {
		return
	}
	lot, err := h.service.RecordReceipt(r.Context(), input)
	if err != nil {
		h.fail(w, "record stock receipt", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
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
	lot, err := h.service.UpdateLot(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update stock lot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lot)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.DeleteLot(r.Context(), id, p.UserID); err != nil {
		h.fail(w, "delete stock lot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ReceiptInput, bool) {
	var req lotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be valid JSON")
		return ReceiptInput{}, false
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return ReceiptInput{}, false
	}
	p, _ := rbac.PrincipalFromContext(r.Context())
	input, err := req.input(h.loc, p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return ReceiptInput{}, false
	}
	return input, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !shared.IsValidation(err) && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
