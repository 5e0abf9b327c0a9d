package worker

import (
	"context"
	"errors"
	"fmt"

	"chrisshop/internal/apperr"
	"chrisshop/internal/broker"
	"chrisshop/internal/models"
	"chrisshop/internal/service"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"go.uber.org/zap"
)

// SettlementWorker consumes OrderPlaced events and runs the simulated
// payment for each, replacing the bare delayed callback with a queue-backed
// task: a failed handler is redelivered by the broker.
type SettlementWorker struct {
	consumer       *broker.Consumer
	eventHandler   *broker.EventHandler
	paymentService *service.PaymentService
	logger         *zap.Logger
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(consumer *broker.Consumer, paymentService *service.PaymentService) *SettlementWorker {
	w := &SettlementWorker{
		consumer:       consumer,
		paymentService: paymentService,
		logger:         util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler = eventHandler

	return w
}

func (w *SettlementWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	w.logger.Info("Settling placed order",
		zap.Int64("order_id", event.OrderID),
		zap.String("event_id", event.EventID))
	return w.paymentService.Settle(ctx, event.OrderID, event.Total)
}

// Start starts the worker
func (w *SettlementWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting settlement worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SettlementWorker) Stop() error {
	w.logger.Info("Stopping settlement worker")
	return w.consumer.Close()
}

// CompletionWorker consumes payment outcomes and finishes the order
// lifecycle: settled payments complete the order, declined payments cancel
// it and restore stock. Each event id is processed at most once.
type CompletionWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewCompletionWorker creates a new completion worker
func NewCompletionWorker(consumer *broker.Consumer, store *store.Store) *CompletionWorker {
	w := &CompletionWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentSettled(w.handlePaymentSettled)
	eventHandler.OnPaymentDeclined(w.handlePaymentDeclined)
	w.eventHandler = eventHandler

	return w
}

func (w *CompletionWorker) handlePaymentSettled(ctx context.Context, event *models.PaymentSettledEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	err = w.store.UpdateOrderStatusTx(ctx, event.OrderID, models.StatusCompleted)
	if errors.Is(err, apperr.ErrInvalidTransition) {
		// The order left the processing state while the payment was in
		// flight, most likely a customer cancel racing settlement. The
		// terminal state wins; don't retry.
		w.logger.Warn("Order no longer completable",
			zap.Int64("order_id", event.OrderID))
	} else if err != nil {
		return fmt.Errorf("failed to complete order %d: %w", event.OrderID, err)
	} else {
		util.OrdersCompletedTotal.Inc()
		w.logger.Info("Order completed", zap.Int64("order_id", event.OrderID))
	}

	// Returning the error leaves the message uncommitted; the redelivery
	// lands on an order already in a terminal state, which is tolerated above.
	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (w *CompletionWorker) handlePaymentDeclined(ctx context.Context, event *models.PaymentDeclinedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	w.logger.Warn("Payment declined, cancelling order",
		zap.Int64("order_id", event.OrderID),
		zap.String("reason", event.Reason))

	err = w.store.CancelOrderSystemTx(ctx, event.OrderID)
	if errors.Is(err, apperr.ErrNotCancellable) {
		w.logger.Warn("Order no longer cancellable",
			zap.Int64("order_id", event.OrderID))
	} else if err != nil {
		return fmt.Errorf("failed to cancel order %d: %w", event.OrderID, err)
	} else {
		util.OrdersCancelledTotal.Inc()
		w.logger.Info("Order cancelled after declined payment",
			zap.Int64("order_id", event.OrderID))
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// Start starts the worker
func (w *CompletionWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting completion worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CompletionWorker) Stop() error {
	w.logger.Info("Stopping completion worker")
	return w.consumer.Close()
}
