package broker

import (
	"context"
	"encoding/json"
	"testing"

	"chrisshop/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageDispatchesOrderPlaced(t *testing.T) {
	eh := NewEventHandler()

	var received *models.OrderPlacedEvent
	eh.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		received = event
		return nil
	})

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderPlaced},
		OrderID:   42,
		UserID:    7,
		Total:     decimal.RequireFromString("232.00"),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, int64(42), received.OrderID)
	assert.Equal(t, int64(7), received.UserID)
	assert.True(t, received.Total.Equal(decimal.RequireFromString("232.00")))
}

func TestHandleMessageDispatchesPaymentSettled(t *testing.T) {
	eh := NewEventHandler()

	var received *models.PaymentSettledEvent
	eh.OnPaymentSettled(func(ctx context.Context, event *models.PaymentSettledEvent) error {
		received = event
		return nil
	})

	event := &models.PaymentSettledEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypePaymentSettled},
		OrderID:   42,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	require.NoError(t, err)
	require.NotNil(t, received)
	assert.Equal(t, int64(42), received.OrderID)
}

func TestHandleMessageIgnoresUnregisteredType(t *testing.T) {
	eh := NewEventHandler()

	event := &models.PaymentDeclinedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypePaymentDeclined},
		OrderID:   1,
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	// No handler registered; the message is dropped without error.
	err = eh.HandleMessage(context.Background(), kafka.Message{Value: payload})
	assert.NoError(t, err)
}

func TestHandleMessageRejectsMalformedPayload(t *testing.T) {
	eh := NewEventHandler()

	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
