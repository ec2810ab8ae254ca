package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Note      string `json:"note" validate:"max=5"`
}

func TestValidate_OK(t *testing.T) {
	err := Validate(lineRequest{ProductID: "1f4f0c1e-6c36-4d0c-9d7b-6a6f0c1c2b11", Quantity: 2})
	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(lineRequest{Quantity: 0, Note: "too long"})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := verr.Fields()
	assert.Equal(t, "is required", fields["product_id"])
	assert.Equal(t, "must be greater than 0", fields["quantity"])
	assert.Equal(t, "must be at most 5 characters", fields["note"])
	assert.Equal(t, []string{"product_id", "quantity", "note"}, verr.FieldNames())
	assert.Contains(t, verr.Error(), "field 'product_id' is required")
}

func TestValidate_BadUUID(t *testing.T) {
	err := Validate(lineRequest{ProductID: "abc", Quantity: 1})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid UUID", verr.Fields()["product_id"])
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"product_id":"1f4f0c1e-6c36-4d0c-9d7b-6a6f0c1c2b11","quantity":3}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst lineRequest
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, 3, dst.Quantity)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":`))

	var dst lineRequest
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
