// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/mayondo/mwf/internal/shared"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var stock *shared.InsufficientStockError
	var fields shared.ValidationErrors
	var field shared.ValidationError
	switch {
	case errors.As(err, &stock):
		JSON(w, http.StatusConflict, ProblemDetail{
			Type:      "/problems/insufficient-stock",
			Title:     "Insufficient Stock",
			Status:    http.StatusConflict,
			Detail:    shared.UserSafeMessage(err),
			Available: &stock.Available,
			Requested: &stock.Requested,
		})
	case errors.As(err, &fields):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: fields.Error(),
			Errors: fields.Fields(),
		})
	case errors.As(err, &field):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: field.Error(),
			Errors: map[string]string{field.Field: field.Message},
		})
	case errors.Is(err, shared.ErrProductNotFound):
		Problem(w, http.StatusNotFound, "Product Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrConcurrencyConflict), errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case errors.Is(err, ErrNotFound), errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, shared.ErrRoleMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
