package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRoleMismatch indicates the user does not belong to the role selected at login.
	ErrRoleMismatch = errors.New("not authorized as this role")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrProductNotFound is returned when a sale names a product with no stock lots.
	ErrProductNotFound = errors.New("product not found in stock")
	// ErrConcurrencyConflict marks a write that lost a race and may be retried.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	// ErrMalformedSequence marks a stored identifier whose numeric suffix cannot be parsed.
	ErrMalformedSequence = errors.New("malformed identifier sequence")
)

// ValidationError reports a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field found in one request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Error())
	}
	return strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// Err returns nil when no field failed.
func (e ValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Fields renders the errors keyed by field name.
func (e ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, v := range e {
		if _, ok := out[v.Field]; !ok {
			out[v.Field] = v.Message
		}
	}
	return out
}

// InsufficientStockError is returned when a sale requests more units than the lots hold.
type InsufficientStockError struct {
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.Product, e.Available, e.Requested)
}

// IsValidation reports whether err carries field validation failures.
func IsValidation(err error) bool {
	var single ValidationError
	var multi ValidationErrors
	return errors.As(err, &single) || errors.As(err, &multi)
}

// UserSafeMessage renders an error as text suitable for API clients.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var stock *InsufficientStockError
	var single ValidationError
	var multi ValidationErrors
	switch {
	case errors.As(err, &stock):
		return fmt.Sprintf("Insufficient stock. Available: %d, Requested: %d", stock.Available, stock.Requested)
	case errors.As(err, &multi):
		return multi.Error()
	case errors.As(err, &single):
		return single.Error()
	case errors.Is(err, ErrProductNotFound):
		return "Product not found in stock. Please add stock first."
	case errors.Is(err, ErrConcurrencyConflict):
		return "The record was changed by someone else. Please try again."
	case errors.Is(err, ErrMalformedSequence):
		return "Stored record identifiers are inconsistent. Contact an administrator."
	case errors.Is(err, ErrRoleMismatch):
		return "You are not authorized as this role."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	case errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "Your session expired. Please reload and try again."
	default:
		return "Something went wrong. Please try again."
	}
}
