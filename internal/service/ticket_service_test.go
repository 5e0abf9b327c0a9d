package service

import (
	"testing"
	"time"

	"chrisshop/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTicket(t *testing.T) {
	ts := NewTicketService()

	order := &models.Order{
		ID:              42,
		UserID:          7,
		Total:           decimal.RequireFromString("232.00"),
		PaymentMethod:   "efectivo",
		DeliveryType:    "domicilio",
		DeliveryAddress: "Av. Siempre Viva 742",
		Status:          models.StatusCompleted,
		CreatedAt:       time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC),
	}
	lines := []models.OrderLine{
		{OrderID: 42, ProductID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(100), ProductName: "Audifonos"},
	}
	user := &models.User{ID: 7, Name: "Ana Lopez", Email: "ana@example.com", Phone: "5551234567"}

	pdfBytes, err := ts.Render(order, lines, user)
	require.NoError(t, err)
	require.NotEmpty(t, pdfBytes)

	// Every PDF starts with this magic header.
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}

func TestRenderTicketWithoutOptionalFields(t *testing.T) {
	ts := NewTicketService()

	order := &models.Order{
		ID:            1,
		UserID:        2,
		Total:         decimal.RequireFromString("11.60"),
		PaymentMethod: "tarjeta",
		DeliveryType:  "recoger",
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
	}
	lines := []models.OrderLine{
		{OrderID: 1, ProductID: 3, Quantity: 1, UnitPrice: decimal.NewFromInt(10), ProductName: "Taza"},
	}
	user := &models.User{ID: 2, Name: "Luis", Email: "luis@example.com"}

	pdfBytes, err := ts.Render(order, lines, user)
	require.NoError(t, err)
	assert.NotEmpty(t, pdfBytes)
}
