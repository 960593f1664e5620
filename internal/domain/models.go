package domain

import "time"

// Role представляет роль пользователя в системе
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// Valid проверяет, что роль известна системе
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Caller представляет контекст вызывающего: кто и с какой ролью выполняет
// операцию. Передается явным аргументом в каждую операцию, никогда не
// читается из глобального состояния.
type Caller struct {
	UserID int64
	Role   Role
}

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod представляет способ оплаты заказа
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCash   PaymentMethod = "cash"
)

// ProductStatus представляет статус товара
type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
	ProductStatusInactive   ProductStatus = "inactive"
)

// DriverStatus представляет статус водителя
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
)

// LedgerType представляет тип записи в финансовом журнале
type LedgerType string

const (
	LedgerTypeDeposit    LedgerType = "deposit"
	LedgerTypeWithdrawal LedgerType = "withdrawal"
	LedgerTypePurchase   LedgerType = "purchase"
	LedgerTypeRefund     LedgerType = "refund"
)

// LedgerStatus представляет статус записи журнала
type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "pending"
	LedgerStatusCompleted LedgerStatus = "completed"
	LedgerStatusFailed    LedgerStatus = "failed"
	LedgerStatusCancelled LedgerStatus = "cancelled"
)

/// Методы пополнения: мгновенные зачисляются сразу, ручные требуют
// подтверждения администратором
const (
	DepositMethodCard         = "card"
	DepositMethodBankTransfer = "bank_transfer"
)

// Каналы выплаты при выводе средств
const (
	WithdrawMethodCard         = "card"
	WithdrawMethodBankTransfer = "bank_transfer"
)

// MethodTransfer помечает записи журнала внутренних переводов.
// Такие списания не расходуют дневной лимит вывода.
const MethodTransfer = "transfer"

// User представляет пользователя системы
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"` // Не отправляем хеш в JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Wallet представляет кошелек пользователя. Все суммы в системе хранятся
// в минимальных денежных единицах (int64).
type Wallet struct {
	UserID    int64     `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product представляет товар продавца
type Product struct {
	ID        int64         `json:"id"`
	SellerID  int64         `json:"seller_id"`
	MarketID  int64         `json:"market_id"`
	Name      string        `json:"name"`
	Price     int64         `json:"price"`
	Quantity  int32         `json:"quantity"`
	Status    ProductStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Order представляет заказ покупателя
type Order struct {
	ID              int64         `json:"id"`
	BuyerID         int64         `json:"-"`
	Code            string        `json:"order_code"`
	Total           int64         `json:"total"`
	WashQuantity    int32         `json:"wash_quantity,omitempty"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Status          OrderStatus   `json:"status"`
	DriverID        *int64        `json:"driver_id,omitempty"` // Назначается только при отгрузке
	ShippingAddress string        `json:"shipping_address"`
	Items           []*OrderItem  `json:"items,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// OrderItem представляет позицию заказа: снимок цены и количества на момент
// оформления, а не живая ссылка на текущий товар
type OrderItem struct {
	ID         int64 `json:"-"`
	OrderID    int64 `json:"-"`
	ProductID  int64 `json:"product_id"`
	SellerID   int64 `json:"seller_id"`
	Quantity   int32 `json:"quantity"`
	UnitPrice  int64 `json:"unit_price"`
	TotalPrice int64 `json:"total_price"`
}

// LedgerEntry представляет запись финансового журнала. Сумма подписанная:
// положительная для зачислений, отрицательная для списаний. Запись со
// статусом completed неизменяема.
type LedgerEntry struct {
	ID            int64        `json:"-"`
	TransactionID string       `json:"transaction_id"`
	UserID        int64        `json:"-"`
	Amount        int64        `json:"amount"`
	Type          LedgerType   `json:"type"`
	Method        string       `json:"method"`
	Status        LedgerStatus `json:"status"`
	Note          string       `json:"note,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Driver представляет водителя (один к одному с пользователем роли driver)
type Driver struct {
	UserID      int64        `json:"id"`
	Name        string       `json:"name"`
	MarketID    *int64       `json:"market_id,omitempty"`
	VehicleType string       `json:"vehicle_type"`
	Status      DriverStatus `json:"status"`
	UpdatedAt   time.Time    `json:"-"`
}
