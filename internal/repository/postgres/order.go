package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// orderTransitions описывает допустимые переходы статуса заказа.
// Отмена возможна только из pending и paid, доставка — только из shipping.
var orderTransitions = map[domain.OrderStatus]map[domain.OrderStatus]bool{
	domain.OrderStatusPending: {
		domain.OrderStatusPaid:      true,
		domain.OrderStatusPreparing: true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusPaid: {
		domain.OrderStatusPreparing: true,
		domain.OrderStatusCancelled: true,
	},
	domain.OrderStatusPreparing: {
		domain.OrderStatusShipping: true,
	},
	domain.OrderStatusShipping: {
		domain.OrderStatusDelivered: true,
	},
}

func canTransition(from, to domain.OrderStatus) bool {
	return orderTransitions[from][to]
}

// OrderRepository реализует domain.OrderRepository. Каждая операция
// жизненного цикла — одна транзакция над заказом, складом, кошельком и
// водителем сразу.
type OrderRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewOrderRepository создает новый OrderRepository
func NewOrderRepository(db DBTX, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

// PlaceOrder атомарно оформляет заказ: резерв остатков по каждой позиции,
// пересчет суммы по текущим ценам, списание кошелька с записью журнала
// (для оплаты кошельком) и вставка заказа с позициями. Любая ошибка
// откатывает все без частичных эффектов.
func (r *OrderRepository) PlaceOrder(ctx context.Context, params domain.PlaceOrderParams) (*domain.Order, error) {
	order := &domain.Order{
		BuyerID:         params.BuyerID,
		Code:            params.OrderCode,
		WashQuantity:    params.WashQuantity,
		PaymentMethod:   params.PaymentMethod,
		Status:          domain.OrderStatusPending,
		ShippingAddress: params.ShippingAddress,
	}

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if params.PaymentMethod == domain.PaymentMethodWallet {
			if err := lockUserWallets(ctx, tx, params.BuyerID); err != nil {
				return err
			}
		}

		var total int64
		items := make([]*domain.OrderItem, 0, len(params.Items))
		for _, spec := range params.Items {
			sellerID, unitPrice, err := reserveStock(ctx, tx, spec.ProductID, spec.Quantity)
			if err != nil {
				return err
			}

			itemTotal := unitPrice * int64(spec.Quantity)
			total += itemTotal
			items = append(items, &domain.OrderItem{
				ProductID:  spec.ProductID,
				SellerID:   sellerID,
				Quantity:   spec.Quantity,
				UnitPrice:  unitPrice,
				TotalPrice: itemTotal,
			})
		}
		total += int64(params.WashQuantity) * params.WashFeePerUnit

		if params.PaymentMethod == domain.PaymentMethodWallet {
			if _, err := debitWallet(ctx, tx, params.BuyerID, total); err != nil {
				return err
			}

			entry := &domain.LedgerEntry{
				TransactionID: params.PurchaseTxID,
				UserID:        params.BuyerID,
				Amount:        -total,
				Type:          domain.LedgerTypePurchase,
				Method:        string(domain.PaymentMethodWallet),
				Status:        domain.LedgerStatusCompleted,
				Note:          params.OrderCode,
			}
			if err := insertLedgerEntry(ctx, tx, entry); err != nil {
				return err
			}
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO orders (buyer_id, order_code, total, wash_quantity, payment_method, status, shipping_address)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at, updated_at`,
			params.BuyerID, params.OrderCode, total, params.WashQuantity,
			params.PaymentMethod, domain.OrderStatusPending, params.ShippingAddress,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to create order %q: %w", params.OrderCode, err)
		}

		for _, item := range items {
			item.OrderID = order.ID
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_items (order_id, product_id, seller_id, quantity, unit_price, total_price)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				order.ID, item.ProductID, item.SellerID, item.Quantity, item.UnitPrice, item.TotalPrice,
			); err != nil {
				return fmt.Errorf("repository: failed to create order item for product %d: %w", item.ProductID, err)
			}
		}

		order.Total = total
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// CancelOrder атомарно отменяет заказ: возврат остатков по снимку позиций,
// возврат денег с записью журнала для оплаченных кошельком заказов
func (r *OrderRepository) CancelOrder(ctx context.Context, orderID, buyerID int64, refundTxID string) (*domain.Order, error) {
	var order *domain.Order

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		locked, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = locked

		if order.BuyerID != buyerID || !canTransition(order.Status, domain.OrderStatusCancelled) {
			return domain.ErrNotCancellable
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
			orderID, domain.OrderStatusCancelled,
		); err != nil {
			return fmt.Errorf("repository: failed to cancel order %d: %w", orderID, err)
		}

		items, err := loadOrderItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order.Items = items

		// Возврат остатков по снимку позиций, не по текущему состоянию товара
		for _, item := range items {
			restored, err := releaseStock(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !restored {
				r.logger.Warn("product deleted, stock restore skipped",
					zap.Int64("order_id", orderID),
					zap.Int64("product_id", item.ProductID),
				)
			}
		}

		if order.PaymentMethod == domain.PaymentMethodWallet {
			if err := lockUserWallets(ctx, tx, buyerID); err != nil {
				return err
			}
			if _, err := creditWallet(ctx, tx, buyerID, order.Total); err != nil {
				return err
			}

			entry := &domain.LedgerEntry{
				TransactionID: refundTxID,
				UserID:        buyerID,
				Amount:        order.Total,
				Type:          domain.LedgerTypeRefund,
				Method:        string(domain.PaymentMethodWallet),
				Status:        domain.LedgerStatusCompleted,
				Note:          order.Code,
			}
			if err := insertLedgerEntry(ctx, tx, entry); err != nil {
				return err
			}
		}

		order.Status = domain.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// SetStatus выполняет ручной переход статуса (пометить оплаченным или
// готовящимся). Продавец может менять только заказы со своими позициями.
func (r *OrderRepository) SetStatus(ctx context.Context, orderID int64, caller domain.Caller, status domain.OrderStatus) (*domain.Order, error) {
	if status != domain.OrderStatusPaid && status != domain.OrderStatusPreparing {
		return nil, domain.ErrInvalidTransition
	}

	var order *domain.Order

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		locked, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = locked

		if caller.Role == domain.RoleSeller {
			var owns bool
			err := tx.QueryRow(ctx,
				`SELECT EXISTS (
					SELECT 1 FROM order_items WHERE order_id = $1 AND seller_id = $2
				 )`,
				orderID, caller.UserID,
			).Scan(&owns)
			if err != nil {
				return fmt.Errorf("repository: failed to check order %d ownership: %w", orderID, err)
			}
			if !owns {
				return domain.ErrOrderNotFound
			}
		}

		if !canTransition(order.Status, status) {
			return domain.ErrInvalidTransition
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
			orderID, status,
		); err != nil {
			return fmt.Errorf("repository: failed to update order %d status: %w", orderID, err)
		}

		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// AssignDriver назначает доступного водителя и переводит заказ в shipping.
// Статус водителя меняется на busy в той же транзакции.
func (r *OrderRepository) AssignDriver(ctx context.Context, orderID, driverID int64) (*domain.Order, *domain.Driver, error) {
	var (
		order  *domain.Order
		driver *domain.Driver
	)

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		locked, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = locked

		if !canTransition(order.Status, domain.OrderStatusShipping) {
			return domain.ErrInvalidTransition
		}

		driver, err = lockDriver(ctx, tx, driverID)
		if err != nil {
			return err
		}
		if driver.Status != domain.DriverStatusAvailable {
			return domain.ErrDriverUnavailable
		}

		if err := setDriverStatus(ctx, tx, driverID, domain.DriverStatusBusy); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, driver_id = $3, updated_at = now() WHERE id = $1`,
			orderID, domain.OrderStatusShipping, driverID,
		); err != nil {
			return fmt.Errorf("repository: failed to assign driver to order %d: %w", orderID, err)
		}

		order.Status = domain.OrderStatusShipping
		order.DriverID = &driverID
		driver.Status = domain.DriverStatusBusy
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return order, driver, nil
}

// MarkDelivered завершает доставку: заказ переходит в delivered, водитель
// освобождается в той же транзакции
func (r *OrderRepository) MarkDelivered(ctx context.Context, orderID, driverID int64) (*domain.Order, error) {
	var order *domain.Order

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		locked, err := lockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order = locked

		if order.DriverID == nil || *order.DriverID != driverID {
			return domain.ErrForbidden
		}
		if !canTransition(order.Status, domain.OrderStatusDelivered) {
			return domain.ErrInvalidTransition
		}

		if _, err := tx.Exec(ctx,
			`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
			orderID, domain.OrderStatusDelivered,
		); err != nil {
			return fmt.Errorf("repository: failed to mark order %d delivered: %w", orderID, err)
		}

		if err := setDriverStatus(ctx, tx, driverID, domain.DriverStatusAvailable); err != nil {
			return err
		}

		items, err := loadOrderItems(ctx, tx, orderID)
		if err != nil {
			return err
		}

		order.Status = domain.OrderStatusDelivered
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrdersByBuyer получает заказы покупателя, новые первыми
func (r *OrderRepository) GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, buyer_id, order_code, total, wash_quantity, payment_method, status,
		        driver_id, shipping_address, created_at, updated_at
		 FROM orders
		 WHERE buyer_id = $1
		 ORDER BY created_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get orders for buyer %d: %w", buyerID, err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order := &domain.Order{}
		err := rows.Scan(&order.ID, &order.BuyerID, &order.Code, &order.Total,
			&order.WashQuantity, &order.PaymentMethod, &order.Status,
			&order.DriverID, &order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	return orders, nil
}

// GetOrderByCode получает заказ по публичному коду
func (r *OrderRepository) GetOrderByCode(ctx context.Context, code string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRow(ctx,
		`SELECT id, buyer_id, order_code, total, wash_quantity, payment_method, status,
		        driver_id, shipping_address, created_at, updated_at
		 FROM orders
		 WHERE order_code = $1`,
		code,
	).Scan(&order.ID, &order.BuyerID, &order.Code, &order.Total,
		&order.WashQuantity, &order.PaymentMethod, &order.Status,
		&order.DriverID, &order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to get order %s: %w", code, err)
	}

	return order, nil
}

// lockOrder читает заказ с блокировкой строки
func lockOrder(ctx context.Context, q executor, orderID int64) (*domain.Order, error) {
	order := &domain.Order{}

	err := q.QueryRow(ctx,
		`SELECT id, buyer_id, order_code, total, wash_quantity, payment_method, status,
		        driver_id, shipping_address, created_at, updated_at
		 FROM orders
		 WHERE id = $1
		 FOR UPDATE`,
		orderID,
	).Scan(&order.ID, &order.BuyerID, &order.Code, &order.Total,
		&order.WashQuantity, &order.PaymentMethod, &order.Status,
		&order.DriverID, &order.ShippingAddress, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock order %d: %w", orderID, err)
	}

	return order, nil
}

// loadOrderItems читает снимок позиций заказа
func loadOrderItems(ctx context.Context, q executor, orderID int64) ([]*domain.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, order_id, product_id, seller_id, quantity, unit_price, total_price
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get items of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.SellerID,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	return items, nil
}
