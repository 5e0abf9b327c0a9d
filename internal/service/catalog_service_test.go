package service

import (
	"testing"

	"chrisshop/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductInputValidate(t *testing.T) {
	in := &ProductInput{
		Name:  "Mechanical Keyboard",
		Price: decimal.RequireFromString("89.90"),
		Stock: 10,
	}
	assert.NoError(t, in.validate())
}

func TestProductInputValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name  string
		input ProductInput
	}{
		{"empty name", ProductInput{Price: decimal.NewFromInt(10), Stock: 1}},
		{"negative price", ProductInput{Name: "x", Price: decimal.NewFromInt(-1), Stock: 1}},
		{"negative stock", ProductInput{Name: "x", Price: decimal.NewFromInt(10), Stock: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.input.validate(), apperr.ErrInvalidInput)
		})
	}
}
