package service

import (
	"context"
	"fmt"
	"time"

	"chrisshop/internal/apperr"
	"chrisshop/internal/broker"
	"chrisshop/internal/models"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService exposes order history and controlled state transitions.
type OrderService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store *store.Store, eventPublisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// History returns all orders for admins, only the caller's own otherwise
func (s *OrderService) History(ctx context.Context, principal models.Principal) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.History")
	defer span.End()

	var orders []models.Order
	var err error
	if principal.IsAdmin() {
		orders, err = s.store.ListOrders(ctx)
	} else {
		orders, err = s.store.ListOrdersByUser(ctx, principal.UserID)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return orders, nil
}

// Get returns an order with its lines, scoped to the owner unless admin
func (s *OrderService) Get(ctx context.Context, principal models.Principal, orderID int64) (*models.Order, []models.OrderLine, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get")
	defer span.End()

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if !principal.IsAdmin() && order.UserID != principal.UserID {
		// A non-owner learns nothing, not even that the order exists.
		return nil, nil, apperr.ErrNotFound
	}

	lines, err := s.store.ListOrderLines(ctx, orderID)
	if err != nil {
		return nil, nil, apperr.Storage(err)
	}

	return order, lines, nil
}

// SetStatus moves an order to a new status through the transition table.
// Admin only.
func (s *OrderService) SetStatus(ctx context.Context, principal models.Principal, orderID int64, status models.Status) error {
	ctx, span := util.StartSpan(ctx, "OrderService.SetStatus")
	defer span.End()

	if !principal.IsAdmin() {
		return apperr.ErrForbidden
	}
	if !models.IsValidStatus(status) {
		return apperr.ErrInvalidStatus
	}

	if err := s.store.UpdateOrderStatusTx(ctx, orderID, status); err != nil {
		return err
	}

	util.OrderStatusChangesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("status", string(status)))
	return nil
}

// Cancel cancels the caller's own order while it is still pending or
// processing, restoring each line's quantity back onto product stock.
func (s *OrderService) Cancel(ctx context.Context, principal models.Principal, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	if principal.Role != models.RoleCustomer {
		return apperr.ErrForbidden
	}

	if err := s.store.CancelOrderTx(ctx, orderID, principal.UserID); err != nil {
		return err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", principal.UserID))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
		Reason:  "cancelled_by_customer",
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event",
			zap.Int64("order_id", orderID), zap.Error(err))
	}

	return nil
}

// TicketData gathers everything the ticket renderer needs for one order
func (s *OrderService) TicketData(ctx context.Context, principal models.Principal, orderID int64) (*models.Order, []models.OrderLine, *models.User, error) {
	order, lines, err := s.Get(ctx, principal, orderID)
	if err != nil {
		return nil, nil, nil, err
	}

	user, err := s.store.GetUser(ctx, order.UserID)
	if err != nil {
		return nil, nil, nil, apperr.Storage(fmt.Errorf("failed to load order customer: %w", err))
	}

	return order, lines, user, nil
}
