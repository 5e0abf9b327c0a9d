package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chrisshop/internal/apperr"
	"chrisshop/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CheckoutTx turns a user's cart into an order in a single transaction. The
// cart is read with its product rows locked, so the unit prices snapshotted
// into the order lines are the prices at commit time. price receives the
// locked cart and returns the order total. Exactly the cart rows that were
// read are deleted; a line added concurrently stays in the cart for the next
// checkout. Any step failing rolls the whole sequence back.
func (s *Store) CheckoutTx(ctx context.Context, order *models.Order, price func([]models.CartLineView) decimal.Decimal) ([]models.OrderLine, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var cart []models.CartLineView
	err = tx.SelectContext(ctx, &cart, `
		SELECT c.id, c.user_id, c.product_id, c.quantity,
		       p.name AS product_name, p.price, p.image_url, p.stock
		FROM cart_lines c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.id
		FOR UPDATE OF p`, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart) == 0 {
		return nil, apperr.ErrEmptyCart
	}

	order.Total = price(cart)

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (user_id, total, payment_method, delivery_address, delivery_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		order.UserID, order.Total, order.PaymentMethod,
		order.DeliveryAddress, order.DeliveryType, order.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	lines := make([]models.OrderLine, 0, len(cart))
	cartIDs := make([]int64, 0, len(cart))
	for _, cl := range cart {
		cartIDs = append(cartIDs, cl.ID)

		line := models.OrderLine{
			OrderID:   order.ID,
			ProductID: cl.ProductID,
			Quantity:  cl.Quantity,
			UnitPrice: cl.Price,
		}
		err = tx.GetContext(ctx, &line.ID, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order line: %w", err)
		}

		// Conditional decrement closes the read-then-write stock race:
		// zero rows affected means another order got there first.
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
			line.Quantity, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, apperr.ErrInsufficientStock)
		}

		lines = append(lines, line)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE id = ANY($1)", pq.Array(cartIDs)); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return lines, nil
}

// GetOrder retrieves an order by ID
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT o.id, o.user_id, o.total, o.payment_method, o.delivery_address,
		       o.delivery_type, o.status, o.created_at, o.updated_at,
		       u.name AS customer_name
		FROM orders o
		JOIN users u ON o.user_id = u.id
		WHERE o.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves all orders joined with the customer name (admin view)
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT o.id, o.user_id, o.total, o.payment_method, o.delivery_address,
		       o.delivery_type, o.status, o.created_at, o.updated_at,
		       u.name AS customer_name
		FROM orders o
		JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC`)
	return orders, err
}

// ListOrdersByUser retrieves one user's orders, newest first
func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT id, user_id, total, payment_method, delivery_address,
		       delivery_type, status, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	return orders, err
}

// ListRecentOrders retrieves the n most recent orders (admin dashboard)
func (s *Store) ListRecentOrders(ctx context.Context, n int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT o.id, o.user_id, o.total, o.payment_method, o.delivery_address,
		       o.delivery_type, o.status, o.created_at, o.updated_at,
		       u.name AS customer_name
		FROM orders o
		JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC
		LIMIT $1`, n)
	return orders, err
}

// ListOrderLines retrieves an order's lines joined with product display data
func (s *Store) ListOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines, `
		SELECT l.id, l.order_id, l.product_id, l.quantity, l.unit_price,
		       p.name AS product_name, p.image_url
		FROM order_lines l
		JOIN products p ON l.product_id = p.id
		WHERE l.order_id = $1
		ORDER BY l.id`, orderID)
	return lines, err
}

// UpdateOrderStatusTx moves an order through the status state machine. The
// current status is locked for the duration so concurrent transitions
// serialize; illegal transitions are rejected.
func (s *Store) UpdateOrderStatusTx(ctx context.Context, orderID int64, to models.Status) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current models.Status
	err = tx.GetContext(ctx, &current,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return err
	}

	if !models.CanTransition(current, to) {
		return fmt.Errorf("%s -> %s: %w", current, to, apperr.ErrInvalidTransition)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2", to, orderID); err != nil {
		return err
	}

	return tx.Commit()
}

// CancelOrderTx cancels an owner's order and restores each line's quantity
// back onto product stock, all in one transaction. Only orders still in
// pending or processing qualify.
func (s *Store) CancelOrderTx(ctx context.Context, orderID, userID int64) error {
	return s.cancelTx(ctx,
		"SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE",
		orderID, userID)
}

// CancelOrderSystemTx cancels an order without owner scoping. Used by the
// completion worker when a payment is declined.
func (s *Store) CancelOrderSystemTx(ctx context.Context, orderID int64) error {
	return s.cancelTx(ctx,
		"SELECT status FROM orders WHERE id = $1 FOR UPDATE",
		orderID)
}

func (s *Store) cancelTx(ctx context.Context, lockQuery string, orderID int64, extra ...interface{}) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	args := append([]interface{}{orderID}, extra...)

	var current models.Status
	err = tx.GetContext(ctx, &current, lockQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotCancellable
	}
	if err != nil {
		return err
	}

	if !current.Cancellable() {
		return apperr.ErrNotCancellable
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		models.StatusCancelled, orderID); err != nil {
		return err
	}

	var lines []models.OrderLine
	if err := tx.SelectContext(ctx, &lines,
		"SELECT id, order_id, product_id, quantity, unit_price FROM order_lines WHERE order_id = $1",
		orderID); err != nil {
		return err
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock + $1 WHERE id = $2",
			line.Quantity, line.ProductID); err != nil {
			return fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	return tx.Commit()
}

// CountOrders returns the total order count (admin dashboard)
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders")
	return count, err
}

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (order_id, amount, status, provider_tx_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, payment, query,
		payment.OrderID, payment.Amount, payment.Status, payment.ProviderTxID)
}

// UpdatePaymentStatus updates payment status
func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID int64, status, providerTxID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, provider_tx_id = $2 WHERE id = $3",
		status, providerTxID, paymentID)
	return err
}
