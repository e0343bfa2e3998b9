package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/shared"
)

func TestRespondErrorInsufficientStock(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("create sale: %w", &shared.InsufficientStockError{Product: "Sofa", Available: 3, Requested: 4})
	RespondError(rec, err)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Available)
	require.NotNil(t, body.Requested)
	require.Equal(t, 3, *body.Available)
	require.Equal(t, 4, *body.Requested)
	require.Contains(t, body.Detail, "Available: 3")
}

func TestRespondErrorValidationFields(t *testing.T) {
	var errs shared.ValidationErrors
	errs.Add("quantity", "must be at least 1")
	errs.Add("unit_price", "must be greater than 0")

	rec := httptest.NewRecorder()
	RespondError(rec, errs.Err())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "must be at least 1", body.Errors["quantity"])
	require.Len(t, body.Errors, 2)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := map[error]int{
		shared.ErrProductNotFound:     http.StatusNotFound,
		shared.ErrConcurrencyConflict: http.StatusConflict,
		shared.ErrNotFound:            http.StatusNotFound,
		shared.ErrInvalidCredentials:  http.StatusUnauthorized,
		shared.ErrRoleMismatch:        http.StatusForbidden,
		ErrForbidden:                  http.StatusForbidden,
		fmt.Errorf("boom"):            http.StatusInternalServerError,
	}
	for err, status := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, err)
		require.Equal(t, status, rec.Code, err.Error())
	}
}
