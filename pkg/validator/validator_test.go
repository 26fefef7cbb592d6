package validator

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productRequest struct {
	Name   string  `json:"name" validate:"required,max=20"`
	Price  float64 `json:"price" validate:"gte=0"`
	Rarity string  `json:"rarity" validate:"required,oneof=common rare epic legendary"`
}

type codeRequest struct {
	Code string `json:"code" validate:"required,discount_code"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(productRequest{Name: "Dragon Flame Car", Price: 29.99, Rarity: "legendary"})
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(productRequest{Price: -1, Rarity: "mythic"})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "must be one of: common rare epic legendary", fields["rarity"])
	assert.Contains(t, valErr.Error(), "name is required")
}

func TestValidate_MinMaxUnits(t *testing.T) {
	type limits struct {
		Password string `json:"password" validate:"min=8"`
		Quantity int    `json:"quantity" validate:"max=999"`
	}

	err := Validate(limits{Password: "short", Quantity: 1000})
	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.Equal(t, "must be at most 999", fields["quantity"])
	assert.Len(t, fields, 2)
}

func TestValidate_DiscountCodeTag(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"DT10", true},
		{"welcome", true},
		{"SUMMER_2025-X", true},
		{"A", false},
		{"has space", false},
		{"ÜBER", false},
		{strings.Repeat("X", 33), false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := Validate(codeRequest{Code: tt.code})
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			var valErr *ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Contains(t, valErr.Fields()["code"], "letters, digits")
		})
	}
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"code":"DT20"}`))
	var req codeRequest
	require.NoError(t, DecodeAndValidate(r, &req))
	assert.Equal(t, "DT20", req.Code)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	var req codeRequest
	err := DecodeAndValidate(r, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
