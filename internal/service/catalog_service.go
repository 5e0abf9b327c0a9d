package service

import (
	"context"

	"chrisshop/internal/apperr"
	"chrisshop/internal/models"
	"chrisshop/internal/store"
	"chrisshop/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService serves the product catalog and its admin management surface.
type CatalogService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store *store.Store) *CatalogService {
	return &CatalogService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ProductInput carries the admin-editable product fields
type ProductInput struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"active"`
}

func (in *ProductInput) validate() error {
	if in.Name == "" || in.Price.IsNegative() || in.Stock < 0 {
		return apperr.ErrInvalidInput
	}
	return nil
}

// ListActive returns the storefront catalog
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListActiveProducts(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return products, nil
}

// Get returns a single product
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// ListAll returns every product, for the admin panel
func (s *CatalogService) ListAll(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.ListAllProducts(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return products, nil
}

// Create adds a product to the catalog
func (s *CatalogService) Create(ctx context.Context, in *ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Brand:       in.Brand,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Stock:       in.Stock,
		Active:      in.Active,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, apperr.Storage(err)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name))
	return product, nil
}

// Update overwrites a product's editable fields
func (s *CatalogService) Update(ctx context.Context, id int64, in *ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Brand:       in.Brand,
		Category:    in.Category,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Stock:       in.Stock,
		Active:      in.Active,
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product from the catalog
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteProduct(ctx, id)
}

// ToggleActive flips a product's visibility and returns the new state
func (s *CatalogService) ToggleActive(ctx context.Context, id int64) (bool, error) {
	active, err := s.store.ToggleProductActive(ctx, id)
	if err != nil {
		return false, err
	}

	s.logger.Info("Product visibility toggled",
		zap.Int64("product_id", id),
		zap.Bool("active", active))
	return active, nil
}

// DashboardStats aggregates the counts shown on the admin dashboard
func (s *CatalogService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	productCount, err := s.store.CountProducts(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	userCount, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	orderCount, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	recent, err := s.store.ListRecentOrders(ctx, 5)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	return &models.DashboardStats{
		ProductCount: productCount,
		UserCount:    userCount,
		OrderCount:   orderCount,
		RecentOrders: recent,
	}, nil
}
