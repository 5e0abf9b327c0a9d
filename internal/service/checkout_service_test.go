package service

import (
	"testing"

	"chrisshop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	lines := []models.CartLineView{
		{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(100)},
	}

	subtotal, tax, total := computeTotals(lines)

	assert.Equal(t, "200", subtotal.String())
	assert.Equal(t, "32", tax.String())
	assert.Equal(t, "232", total.String())
}

func TestComputeTotalsMultipleLines(t *testing.T) {
	lines := []models.CartLineView{
		{ProductID: 1, Quantity: 3, Price: decimal.RequireFromString("19.99")},
		{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("5.50")},
	}

	subtotal, tax, total := computeTotals(lines)

	// 3*19.99 + 5.50 = 65.47, tax 16% = 10.4752 -> 10.48
	assert.Equal(t, "65.47", subtotal.String())
	assert.Equal(t, "10.48", tax.String())
	assert.Equal(t, "75.95", total.String())
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	subtotal, tax, total := computeTotals(nil)

	assert.True(t, subtotal.IsZero())
	assert.True(t, tax.IsZero())
	assert.True(t, total.IsZero())
}

func TestComputeTotalsRoundsOnceAtEnd(t *testing.T) {
	// Each line alone would round to 0.01 in tax; summed first, the tax
	// on 0.15 is 0.024 -> 0.02, not 2 * (0.0008 -> 0.00).
	lines := []models.CartLineView{
		{ProductID: 1, Quantity: 1, Price: decimal.RequireFromString("0.05")},
		{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("0.10")},
	}

	subtotal, tax, total := computeTotals(lines)

	assert.Equal(t, "0.15", subtotal.String())
	assert.Equal(t, "0.02", tax.String())
	assert.Equal(t, "0.17", total.String())
}

func TestCheckoutRejectsAdmin(t *testing.T) {
	// This would require mocking the store
	// Placeholder for demonstration
	t.Skip("Requires mocked store")
}
