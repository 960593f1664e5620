package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ProductRepository реализует domain.ProductRepository
type ProductRepository struct {
	db DBTX
}

// NewProductRepository создает новый ProductRepository
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// CreateProduct создает товар продавца; статус выводится из количества
func (r *ProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	status := domain.ProductStatusActive
	if product.Quantity == 0 {
		status = domain.ProductStatusOutOfStock
	}

	created := *product
	created.Status = status

	err := r.db.QueryRow(ctx,
		`INSERT INTO products (seller_id, market_id, name, price, quantity, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		product.SellerID, product.MarketID, product.Name, product.Price, product.Quantity, status,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("repository: failed to create product %q: %w", product.Name, err)
	}

	return &created, nil
}

// GetProductByID получает товар по ID
func (r *ProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	product := &domain.Product{}

	err := r.db.QueryRow(ctx,
		`SELECT id, seller_id, market_id, name, price, quantity, status, created_at, updated_at
		 FROM products
		 WHERE id = $1`,
		id,
	).Scan(&product.ID, &product.SellerID, &product.MarketID, &product.Name,
		&product.Price, &product.Quantity, &product.Status, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to get product %d: %w", id, err)
	}

	return product, nil
}

// reserveStock атомарно уменьшает остаток товара и пересчитывает статус
// одним условным UPDATE: два конкурентных заказа не смогут оба забрать
// последнюю единицу. Возвращает снимок seller_id и цены на момент резерва.
func reserveStock(ctx context.Context, q executor, productID int64, quantity int32) (sellerID, unitPrice int64, err error) {
	err = q.QueryRow(ctx,
		`UPDATE products
		 SET quantity = quantity - $2,
		     status = CASE WHEN quantity - $2 = 0 THEN 'out_of_stock' ELSE status END,
		     updated_at = now()
		 WHERE id = $1 AND status = 'active' AND quantity >= $2
		 RETURNING seller_id, price`,
		productID, quantity,
	).Scan(&sellerID, &unitPrice)

	if err == nil {
		return sellerID, unitPrice, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("repository: failed to reserve stock for product %d: %w", productID, err)
	}

	// Различаем отсутствующий товар и нехватку остатка
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`,
		productID,
	).Scan(&exists); err != nil {
		return 0, 0, fmt.Errorf("repository: failed to check product %d: %w", productID, err)
	}
	if !exists {
		return 0, 0, domain.ErrProductNotFound
	}
	return 0, 0, domain.ErrOutOfStock
}

// releaseStock возвращает остаток по снимку позиции заказа. Для удаленного
// товара возврат пропускается: вызывающий получает false и пишет предупреждение.
func releaseStock(ctx context.Context, q executor, productID int64, quantity int32) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE products
		 SET quantity = quantity + $2,
		     status = CASE WHEN status = 'out_of_stock' THEN 'active' ELSE status END,
		     updated_at = now()
		 WHERE id = $1`,
		productID, quantity,
	)
	if err != nil {
		return false, fmt.Errorf("repository: failed to release stock for product %d: %w", productID, err)
	}

	return tag.RowsAffected() > 0, nil
}
