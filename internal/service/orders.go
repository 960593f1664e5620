package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/avc/marketplace-backend/internal/utils/ordercode"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderServiceConfig содержит настройки заказов
type OrderServiceConfig struct {
	WashFeePerUnit int64 // Фиксированная наценка за единицу мойки
}

// OrderService реализует domain.OrderService: валидация до любой записи,
// атомарные единицы работы в репозитории, уведомления после фиксации
type OrderService struct {
	orderRepo   domain.OrderRepository
	notifier    domain.Notifier
	idempotency domain.IdempotencyStore // nil, если Redis не настроен
	config      OrderServiceConfig
	logger      *zap.Logger
}

// NewOrderService создает новый OrderService
func NewOrderService(
	orderRepo domain.OrderRepository,
	notifier domain.Notifier,
	idempotency domain.IdempotencyStore,
	config OrderServiceConfig,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		notifier:    notifier,
		idempotency: idempotency,
		config:      config,
		logger:      logger,
	}
}

// PlaceOrder оформляет заказ покупателя
func (s *OrderService) PlaceOrder(ctx context.Context, caller domain.Caller, input domain.PlaceOrderInput) (*domain.Order, error) {
	if caller.Role != domain.RoleBuyer {
		return nil, domain.ErrForbidden
	}
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", ErrInvalidInput)
		}
	}
	if input.PaymentMethod != domain.PaymentMethodWallet && input.PaymentMethod != domain.PaymentMethodCash {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, input.PaymentMethod)
	}
	if input.WashQuantity < 0 {
		return nil, fmt.Errorf("%w: wash quantity must not be negative", ErrInvalidInput)
	}
	if input.ShippingAddress == "" {
		return nil, fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}

	// Повтор запроса с тем же ключом возвращает первый ответ
	if cached, ok := s.cachedOrder(ctx, input.IdempotencyKey); ok {
		return cached, nil
	}

	code, err := ordercode.Generate(time.Now())
	if err != nil {
		return nil, fmt.Errorf("order service: failed to generate order code: %w", err)
	}

	order, err := s.orderRepo.PlaceOrder(ctx, domain.PlaceOrderParams{
		BuyerID:         caller.UserID,
		Items:           input.Items,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		WashQuantity:    input.WashQuantity,
		WashFeePerUnit:  s.config.WashFeePerUnit,
		OrderCode:       code,
		PurchaseTxID:    uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	s.storeOrder(ctx, input.IdempotencyKey, order)

	s.notifier.Notify(domain.Event{
		Type:    domain.EventOrderPlaced,
		UserID:  caller.UserID,
		OrderID: &order.ID,
		Amount:  &order.Total,
		Title:   "Order placed",
		Message: fmt.Sprintf("Order %s has been placed", order.Code),
	})
	for _, sellerID := range distinctSellers(order.Items) {
		s.notifier.Notify(domain.Event{
			Type:    domain.EventOrderPlaced,
			UserID:  sellerID,
			OrderID: &order.ID,
			Title:   "New order",
			Message: fmt.Sprintf("Order %s contains your products", order.Code),
		})
	}

	return order, nil
}

// CancelOrder отменяет заказ покупателя с возвратом остатков и денег
func (s *OrderService) CancelOrder(ctx context.Context, caller domain.Caller, orderID int64) (*domain.Order, error) {
	if caller.Role != domain.RoleBuyer {
		return nil, domain.ErrForbidden
	}

	order, err := s.orderRepo.CancelOrder(ctx, orderID, caller.UserID, uuid.New().String())
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventOrderCancelled,
		UserID:  caller.UserID,
		OrderID: &order.ID,
		Amount:  &order.Total,
		Title:   "Order cancelled",
		Message: fmt.Sprintf("Order %s has been cancelled", order.Code),
	})

	return order, nil
}

// SetStatus помечает заказ оплаченным или готовящимся (продавец/администратор)
func (s *OrderService) SetStatus(ctx context.Context, caller domain.Caller, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if caller.Role != domain.RoleSeller && caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	order, err := s.orderRepo.SetStatus(ctx, orderID, caller, status)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventOrderStatus,
		UserID:  order.BuyerID,
		OrderID: &order.ID,
		Title:   "Order updated",
		Message: fmt.Sprintf("Order %s is now %s", order.Code, order.Status),
	})

	return order, nil
}

// AssignDriver назначает водителя на заказ (администратор)
func (s *OrderService) AssignDriver(ctx context.Context, caller domain.Caller, orderID, driverID int64) (*domain.Order, *domain.Driver, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, nil, domain.ErrForbidden
	}

	order, driver, err := s.orderRepo.AssignDriver(ctx, orderID, driverID)
	if err != nil {
		return nil, nil, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventOrderShipping,
		UserID:  order.BuyerID,
		OrderID: &order.ID,
		Title:   "Order shipped",
		Message: fmt.Sprintf("Order %s is on the way", order.Code),
	})
	s.notifier.Notify(domain.Event{
		Type:    domain.EventOrderShipping,
		UserID:  driver.UserID,
		OrderID: &order.ID,
		Title:   "Delivery assigned",
		Message: fmt.Sprintf("You are assigned to order %s", order.Code),
	})

	return order, driver, nil
}

// MarkDelivered подтверждает доставку заказа (водитель)
func (s *OrderService) MarkDelivered(ctx context.Context, caller domain.Caller, orderID int64) (*domain.Order, error) {
	if caller.Role != domain.RoleDriver {
		return nil, domain.ErrForbidden
	}

	order, err := s.orderRepo.MarkDelivered(ctx, orderID, caller.UserID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventOrderDelivered,
		UserID:  order.BuyerID,
		OrderID: &order.ID,
		Title:   "Order delivered",
		Message: fmt.Sprintf("Order %s has been delivered", order.Code),
	})
	for _, sellerID := range distinctSellers(order.Items) {
		s.notifier.Notify(domain.Event{
			Type:    domain.EventOrderDelivered,
			UserID:  sellerID,
			OrderID: &order.ID,
			Title:   "Order delivered",
			Message: fmt.Sprintf("Order %s has been delivered", order.Code),
		})
	}

	return order, nil
}

// GetOrders возвращает заказы покупателя
func (s *OrderService) GetOrders(ctx context.Context, caller domain.Caller) ([]*domain.Order, error) {
	orders, err := s.orderRepo.GetOrdersByBuyer(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("order service: failed to get orders for user %d: %w", caller.UserID, err)
	}

	return orders, nil
}

// TrackOrder находит заказ по публичному коду. Заведомо некорректный код
// отклоняется до обращения к хранилищу; чужой заказ не отличим от
// несуществующего.
func (s *OrderService) TrackOrder(ctx context.Context, caller domain.Caller, code string) (*domain.Order, error) {
	if !ordercode.Validate(code) {
		return nil, fmt.Errorf("%w: malformed order code %q", ErrInvalidInput, code)
	}

	order, err := s.orderRepo.GetOrderByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	switch {
	case caller.Role == domain.RoleAdmin:
	case order.BuyerID == caller.UserID:
	case order.DriverID != nil && *order.DriverID == caller.UserID:
	default:
		return nil, domain.ErrOrderNotFound
	}

	return order, nil
}

// cachedOrder возвращает сохраненный ответ по ключу идемпотентности
func (s *OrderService) cachedOrder(ctx context.Context, key string) (*domain.Order, bool) {
	if key == "" || s.idempotency == nil {
		return nil, false
	}

	payload, err := s.idempotency.Get(ctx, key)
	if err != nil {
		// Недоступность хранилища не блокирует оформление заказа
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return nil, false
	}
	if payload == nil {
		return nil, false
	}

	order := &domain.Order{}
	if err := json.Unmarshal(payload, order); err != nil {
		s.logger.Warn("failed to decode cached order", zap.Error(err))
		return nil, false
	}

	return order, true
}

// storeOrder сохраняет ответ по ключу идемпотентности
func (s *OrderService) storeOrder(ctx context.Context, key string, order *domain.Order) {
	if key == "" || s.idempotency == nil {
		return
	}

	payload, err := json.Marshal(order)
	if err != nil {
		s.logger.Warn("failed to encode order for idempotency store", zap.Error(err))
		return
	}
	if err := s.idempotency.Set(ctx, key, payload); err != nil {
		s.logger.Warn("failed to store idempotency key", zap.Error(err))
	}
}

// distinctSellers возвращает уникальные ID продавцов из позиций заказа
func distinctSellers(items []*domain.OrderItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	var sellers []int64
	for _, item := range items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		sellers = append(sellers, item.SellerID)
	}

	return sellers
}
