package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chrisshop/internal/apperr"
	"chrisshop/internal/broker"
	"chrisshop/internal/models"
	"chrisshop/internal/redisclient"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// taxRate is the fixed IVA applied to every order.
var taxRate = decimal.NewFromFloat(0.16)

// CheckoutService turns a user's cart into a priced, stock-adjusted order.
type CheckoutService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest carries the fields a customer submits at checkout
type CheckoutRequest struct {
	PaymentMethod   string `json:"payment_method" binding:"required"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryType    string `json:"delivery_type" binding:"required"`
}

// CheckoutResponse is returned as soon as the order is persisted; settlement
// happens asynchronously.
type CheckoutResponse struct {
	OrderID int64           `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	Status  models.Status   `json:"status"`
}

// Checkout converts the caller's cart into an order. The whole sequence
// (order insert, line inserts with price snapshots, conditional stock
// decrements, cart clear) runs in one database transaction; any failure
// rolls everything back.
func (s *CheckoutService) Checkout(ctx context.Context, principal models.Principal, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if principal.Role != models.RoleCustomer {
		util.CheckoutsFailedTotal.WithLabelValues("forbidden").Inc()
		return nil, apperr.ErrForbidden
	}

	order := &models.Order{
		UserID:          principal.UserID,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryType:    req.DeliveryType,
		Status:          models.StatusProcessing,
	}

	// The cart is read, priced, and consumed inside the transaction, with the
	// product rows locked. The snapshot prices are the commit-time prices.
	lines, err := s.store.CheckoutTx(ctx, order, func(cart []models.CartLineView) decimal.Decimal {
		_, _, total := computeTotals(cart)
		return total
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrEmptyCart):
			util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
			return nil, err
		case apperr.IsBusiness(err):
			util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		default:
			util.CheckoutsFailedTotal.WithLabelValues("storage").Inc()
			return nil, apperr.Storage(fmt.Errorf("checkout transaction failed: %w", err))
		}
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", principal.UserID),
		zap.String("total", order.Total.StringFixed(2)))

	if err := s.redis.InvalidateCartCount(ctx, principal.UserID); err != nil {
		s.logger.Warn("Failed to invalidate cart count cache", zap.Error(err))
	}

	eventLines := make([]models.OrderLineData, 0, len(lines))
	for _, l := range lines {
		eventLines = append(eventLines, models.OrderLineData{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Lines:   eventLines,
	}

	// Settlement is fire-and-forget from the caller's point of view: a
	// publish failure is logged, never surfaced.
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return &CheckoutResponse{
		OrderID: order.ID,
		Total:   order.Total,
		Status:  order.Status,
	}, nil
}

// computeTotals sums quantity x price across the cart and applies the fixed
// tax rate. Amounts are rounded to cents only at the end.
func computeTotals(lines []models.CartLineView) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	tax = subtotal.Mul(taxRate).Round(2)
	total = subtotal.Add(subtotal.Mul(taxRate)).Round(2)
	return subtotal.Round(2), tax, total
}
