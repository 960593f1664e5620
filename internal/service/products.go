package service

import (
	"context"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
)

// ProductService реализует domain.ProductService
type ProductService struct {
	productRepo domain.ProductRepository
}

// NewProductService создает новый ProductService
func NewProductService(productRepo domain.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// CreateProduct создает товар продавца
func (s *ProductService) CreateProduct(ctx context.Context, caller domain.Caller, product *domain.Product) (*domain.Product, error) {
	if caller.Role != domain.RoleSeller && caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if product.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if product.Price <= 0 {
		return nil, fmt.Errorf("%w: product price must be positive", ErrInvalidInput)
	}
	if product.Quantity < 0 {
		return nil, fmt.Errorf("%w: product quantity must not be negative", ErrInvalidInput)
	}

	product.SellerID = caller.UserID

	created, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("product service: failed to create product: %w", err)
	}

	return created, nil
}

// GetProduct возвращает товар по ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.productRepo.GetProductByID(ctx, id)
}
