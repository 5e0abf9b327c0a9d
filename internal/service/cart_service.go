package service

import (
	"context"
	"fmt"

	"chrisshop/internal/apperr"
	"chrisshop/internal/models"
	"chrisshop/internal/redisclient"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService maintains the per-user cart: quantities never exceed current
// stock, and re-adding a product merges into the existing line.
type CartService struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store *store.Store, redis *redisclient.Client) *CartService {
	return &CartService{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// CartView is a user's cart plus its pre-tax total
type CartView struct {
	Lines []models.CartLineView `json:"lines"`
	Total decimal.Decimal       `json:"total"`
}

// Add puts quantity of a product into the user's cart, merging with an
// existing line. Returns the new badge count.
func (s *CartService) Add(ctx context.Context, userID, productID int64, quantity int) (int, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Add")
	defer span.End()

	if quantity < 1 {
		util.CartOpsTotal.WithLabelValues("add", "invalid").Inc()
		return 0, apperr.ErrInvalidQuantity
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		util.CartOpsTotal.WithLabelValues("add", "error").Inc()
		return 0, err
	}
	if !product.Active || product.Stock == 0 {
		util.CartOpsTotal.WithLabelValues("add", "unavailable").Inc()
		return 0, apperr.ErrProductUnavailable
	}

	existing, err := s.store.GetCartLineByProduct(ctx, userID, productID)
	if err != nil {
		return 0, apperr.Storage(err)
	}

	if existing != nil {
		// Merge, leaving the row untouched when the merged quantity
		// would exceed stock.
		if existing.Quantity+quantity > product.Stock {
			util.CartOpsTotal.WithLabelValues("add", "insufficient_stock").Inc()
			return 0, apperr.ErrInsufficientStock
		}
		if err := s.store.AddCartLineQuantity(ctx, userID, productID, quantity); err != nil {
			return 0, apperr.Storage(err)
		}
	} else {
		if quantity > product.Stock {
			util.CartOpsTotal.WithLabelValues("add", "insufficient_stock").Inc()
			return 0, apperr.ErrInsufficientStock
		}
		line := &models.CartLine{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := s.store.InsertCartLine(ctx, line); err != nil {
			return 0, apperr.Storage(err)
		}
	}

	util.CartOpsTotal.WithLabelValues("add", "ok").Inc()
	return s.refreshCount(ctx, userID)
}

// UpdateQuantity overwrites a line's quantity, bounded by current stock
func (s *CartService) UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if quantity < 1 {
		util.CartOpsTotal.WithLabelValues("update", "invalid").Inc()
		return apperr.ErrInvalidQuantity
	}

	line, err := s.store.GetCartLine(ctx, userID, lineID)
	if err != nil {
		util.CartOpsTotal.WithLabelValues("update", "error").Inc()
		return err
	}

	if quantity > line.Stock {
		util.CartOpsTotal.WithLabelValues("update", "insufficient_stock").Inc()
		return apperr.ErrInsufficientStock
	}

	if err := s.store.SetCartLineQuantity(ctx, userID, lineID, quantity); err != nil {
		return apperr.Storage(err)
	}

	util.CartOpsTotal.WithLabelValues("update", "ok").Inc()
	if err := s.redis.InvalidateCartCount(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cart count cache", zap.Error(err))
	}
	return nil
}

// Remove deletes a line owned by the user and returns the new badge count
func (s *CartService) Remove(ctx context.Context, userID, lineID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Remove")
	defer span.End()

	if err := s.store.DeleteCartLine(ctx, userID, lineID); err != nil {
		util.CartOpsTotal.WithLabelValues("remove", "error").Inc()
		return 0, err
	}

	util.CartOpsTotal.WithLabelValues("remove", "ok").Inc()
	return s.refreshCount(ctx, userID)
}

// List returns the cart joined with product data plus the pre-tax total
func (s *CartService) List(ctx context.Context, userID int64) (*CartView, error) {
	lines, err := s.store.ListCartLines(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return &CartView{Lines: lines, Total: total.Round(2)}, nil
}

// Count returns the badge count, served from Redis when possible
func (s *CartService) Count(ctx context.Context, userID int64) (int, error) {
	if count, found, err := s.redis.GetCartCount(ctx, userID); err == nil && found {
		return count, nil
	}
	return s.refreshCount(ctx, userID)
}

// refreshCount recomputes the badge count from the database and re-caches it
func (s *CartService) refreshCount(ctx context.Context, userID int64) (int, error) {
	count, err := s.store.CartQuantityTotal(ctx, userID)
	if err != nil {
		return 0, apperr.Storage(fmt.Errorf("failed to count cart: %w", err))
	}
	if err := s.redis.SetCartCount(ctx, userID, count); err != nil {
		s.logger.Warn("Failed to cache cart count", zap.Error(err))
	}
	return count, nil
}
