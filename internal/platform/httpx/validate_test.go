package httpx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mayondo/mwf/internal/shared"
)

type sampleRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	err := ValidateStruct(NewValidator(), sampleRequest{Email: "nope"})
	require.Error(t, err)

	var fields shared.ValidationErrors
	require.ErrorAs(t, err, &fields)
	got := fields.Fields()
	require.Equal(t, "is required", got["name"])
	require.Equal(t, "must be a valid email address", got["email"])
	require.Equal(t, "must be greater than or equal to 1", got["quantity"])
}

func TestValidateStructPasses(t *testing.T) {
	require.NoError(t, ValidateStruct(NewValidator(), sampleRequest{Name: "Jane", Quantity: 2}))
}
