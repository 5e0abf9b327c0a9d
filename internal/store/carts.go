package store

import (
	"context"
	"database/sql"
	"errors"

	"chrisshop/internal/apperr"
	"chrisshop/internal/models"
)

// ListCartLines retrieves a user's cart joined with current product data
func (s *Store) ListCartLines(ctx context.Context, userID int64) ([]models.CartLineView, error) {
	var lines []models.CartLineView
	err := s.db.SelectContext(ctx, &lines, `
		SELECT c.id, c.user_id, c.product_id, c.quantity,
		       p.name AS product_name, p.price, p.image_url, p.stock
		FROM cart_lines c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.id`, userID)
	return lines, err
}

// GetCartLine retrieves one cart line owned by the user, joined with stock
func (s *Store) GetCartLine(ctx context.Context, userID, lineID int64) (*models.CartLineView, error) {
	var line models.CartLineView
	err := s.db.GetContext(ctx, &line, `
		SELECT c.id, c.user_id, c.product_id, c.quantity,
		       p.name AS product_name, p.price, p.image_url, p.stock
		FROM cart_lines c
		JOIN products p ON c.product_id = p.id
		WHERE c.id = $1 AND c.user_id = $2`, lineID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// GetCartLineByProduct retrieves the user's line for a product, if any
func (s *Store) GetCartLineByProduct(ctx context.Context, userID, productID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := s.db.GetContext(ctx, &line,
		"SELECT * FROM cart_lines WHERE user_id = $1 AND product_id = $2", userID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// InsertCartLine creates a new cart line
func (s *Store) InsertCartLine(ctx context.Context, line *models.CartLine) error {
	return s.db.GetContext(ctx, &line.ID, `
		INSERT INTO cart_lines (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id`,
		line.UserID, line.ProductID, line.Quantity)
}

// AddCartLineQuantity merges quantity into an existing (user, product) line
func (s *Store) AddCartLineQuantity(ctx context.Context, userID, productID int64, delta int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = quantity + $1 WHERE user_id = $2 AND product_id = $3",
		delta, userID, productID)
	return err
}

// SetCartLineQuantity overwrites a line's quantity
func (s *Store) SetCartLineQuantity(ctx context.Context, userID, lineID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cart_lines SET quantity = $1 WHERE id = $2 AND user_id = $3",
		quantity, lineID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteCartLine removes one line owned by the user
func (s *Store) DeleteCartLine(ctx context.Context, userID, lineID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_lines WHERE id = $1 AND user_id = $2", lineID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// CartQuantityTotal sums quantities across the user's cart (badge count)
func (s *Store) CartQuantityTotal(ctx context.Context, userID int64) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COALESCE(SUM(quantity), 0) FROM cart_lines WHERE user_id = $1", userID)
	return total, err
}
