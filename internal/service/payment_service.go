package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"chrisshop/internal/broker"
	"chrisshop/internal/models"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService stands in for a payment gateway: it holds the configured
// settlement delay, records the payment, and publishes the outcome.
type PaymentService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	settleDelay    time.Duration
	successRate    float64
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store *store.Store,
	eventPublisher *broker.EventPublisher,
	settleDelay time.Duration,
	successRate float64,
) *PaymentService {
	return &PaymentService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		settleDelay:    settleDelay,
		successRate:    successRate,
	}
}

// Settle simulates a payment round trip for a placed order.
func (ps *PaymentService) Settle(ctx context.Context, orderID int64, amount decimal.Decimal) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.Settle")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()

	ps.logger.Info("Settling payment",
		zap.Int64("order_id", orderID),
		zap.String("amount", amount.StringFixed(2)))

	select {
	case <-time.After(ps.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	payment := &models.Payment{
		OrderID: orderID,
		Amount:  amount,
		Status:  models.PaymentStatusPending,
	}
	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	success := rand.Float64() < ps.successRate
	providerTxID := fmt.Sprintf("TXN-%s", uuid.New().String()[:8])

	if success {
		if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusSuccess, providerTxID); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		util.PaymentSuccessTotal.Inc()

		event := &models.PaymentSettledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePaymentSettled,
				Timestamp: time.Now(),
			},
			OrderID:   orderID,
			PaymentID: payment.ID,
			Amount:    amount,
			TxID:      providerTxID,
		}
		if err := ps.eventPublisher.PublishPaymentSettled(ctx, event); err != nil {
			return fmt.Errorf("failed to publish PaymentSettled event: %w", err)
		}

		ps.logger.Info("Payment settled",
			zap.Int64("order_id", orderID),
			zap.String("tx_id", providerTxID))
		return nil
	}

	ps.logger.Warn("Payment declined", zap.Int64("order_id", orderID))

	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentStatusFailed, ""); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	util.PaymentFailedTotal.Inc()

	event := &models.PaymentDeclinedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentDeclined,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		PaymentID: payment.ID,
		Reason:    "payment_declined",
	}
	if err := ps.eventPublisher.PublishPaymentDeclined(ctx, event); err != nil {
		return fmt.Errorf("failed to publish PaymentDeclined event: %w", err)
	}

	return nil
}
