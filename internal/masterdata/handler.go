package masterdata

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

// Handler exposes master data endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler creates a new master data handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireUser())
		r.Get("/options", h.handleOptions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStockView, shared.PermSalesView))
		r.Get("/products", h.handleListProducts)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalesView))
		r.Get("/customers", h.handleListCustomers)
		r.Get("/customers/{id}", h.handleGetCustomer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermSalesEdit))
		r.Post("/customers", h.handleCreateCustomer)
		r.Put("/customers/{id}", h.handleUpdateCustomer)
		r.Delete("/customers/{id}", h.handleDeleteCustomer)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermStockView))
		r.Get("/suppliers", h.handleListSuppliers)
		r.Get("/suppliers/{id}", h.handleGetSupplier)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermStockEdit))
		r.Post("/suppliers", h.handleCreateSupplier)
		r.Put("/suppliers/{id}", h.handleUpdateSupplier)
		r.Delete("/suppliers/{id}", h.handleDeleteSupplier)
	})
}

type customerRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"required,max=15"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address" validate:"required"`
}

type supplierRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	ContactPerson string `json:"contact_person" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,max=15"`
	Email         string `json:"email" validate:"required,email"`
	Address       string `json:"address" validate:"required"`
}

func (req customerRequest) customer() Customer {
	return Customer{Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address}
}

func (req supplierRequest) supplier() Supplier {
	return Supplier{Name: req.Name, ContactPerson: req.ContactPerson, Phone: req.Phone, Email: req.Email, Address: req.Address}
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_names":   ProductNames(),
		"product_types":   ProductTypes(),
		"origins":         Origins(),
		"payment_methods": PaymentMethods(),
	})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := shared.PageParams(r.URL.Query())
	customers, total, err := h.service.ListCustomers(r.Context(), ListFilters{Limit: limit, Offset: offset, Search: r.URL.Query().Get("q")})
	if err != nil {
		h.fail(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[Customer]{Items: customers, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.fail(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), req.customer())
	if err != nil {
		h.fail(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateCustomer(r.Context(), id, req.customer()); err != nil {
		h.fail(w, "update customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		h.fail(w, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := shared.PageParams(r.URL.Query())
	suppliers, total, err := h.service.ListSuppliers(r.Context(), ListFilters{Limit: limit, Offset: offset, Search: r.URL.Query().Get("q")})
	if err != nil {
		h.fail(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[Supplier]{Items: suppliers, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	supplier, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		h.fail(w, "get supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), req.supplier())
	if err != nil {
		h.fail(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req supplierRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdateSupplier(r.Context(), id, req.supplier()); err != nil {
		h.fail(w, "update supplier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		h.fail(w, "delete supplier", err)
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
	switch {
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "a record with this name already exists")
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", "the record is referenced by sales or stock and cannot be deleted")
	default:
		if !shared.IsValidation(err) && !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
