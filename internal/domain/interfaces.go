package domain

import (
	"context"
	"time"
)

// OrderItemSpec представляет запрошенную позицию при оформлении заказа
type OrderItemSpec struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

// PlaceOrderParams содержит все данные атомарного оформления заказа
type PlaceOrderParams struct {
	BuyerID         int64
	Items           []OrderItemSpec
	ShippingAddress string
	PaymentMethod   PaymentMethod
	WashQuantity    int32
	WashFeePerUnit  int64
	OrderCode       string
	PurchaseTxID    string // ID записи журнала при оплате кошельком
}

// WithdrawParams содержит данные атомарного вывода средств
type WithdrawParams struct {
	UserID        int64
	Amount        int64
	Method        string
	TransactionID string
	Note          string
	DailyCap      int64     // Суммарный лимит выводов за окно
	Since         time.Time // Начало окна лимита
}

// TransferParams содержит данные атомарного перевода между кошельками
type TransferParams struct {
	FromUserID       int64
	ToUserID         int64
	Amount           int64
	Fee              int64 // Добавляется к списанию отправителя
	OutTransactionID string
	InTransactionID  string
	Note             string
}

// UserRepository определяет методы для работы с пользователями.
// Кошелек создается вместе с пользователем, водительская запись — для роли driver.
type UserRepository interface {
	CreateUser(ctx context.Context, login, passwordHash string, role Role, vehicleType string) (*User, error)
	GetUserByLogin(ctx context.Context, login string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

// ProductRepository определяет методы для работы с товарами. Количество и
// статус товара меняются только внутри единиц работы заказа.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
}

// OrderRepository определяет атомарные единицы работы жизненного цикла заказа.
// Каждый метод выполняется в одной транзакции БД: все проверки и записи либо
// фиксируются вместе, либо не фиксируются вовсе.
type OrderRepository interface {
	PlaceOrder(ctx context.Context, params PlaceOrderParams) (*Order, error)
	CancelOrder(ctx context.Context, orderID, buyerID int64, refundTxID string) (*Order, error)
	SetStatus(ctx context.Context, orderID int64, caller Caller, status OrderStatus) (*Order, error)
	AssignDriver(ctx context.Context, orderID, driverID int64) (*Order, *Driver, error)
	MarkDelivered(ctx context.Context, orderID, driverID int64) (*Order, error)
	GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]*Order, error)
	GetOrderByCode(ctx context.Context, code string) (*Order, error)
}

// WalletRepository определяет атомарные единицы работы кошелька и журнала.
// Изменение баланса без записи журнала в той же транзакции — ошибка
// целостности данных.
type WalletRepository interface {
	GetWallet(ctx context.Context, userID int64) (*Wallet, error)
	// Deposit создает запись журнала; для completed-записи баланс зачисляется
	// в той же транзакции, для pending — нет. Возвращает новый баланс.
	Deposit(ctx context.Context, entry *LedgerEntry) (int64, error)
	// ConfirmDeposit переводит pending-запись в completed и зачисляет баланс
	// ровно один раз; повторное подтверждение возвращает ErrTransactionNotFound.
	ConfirmDeposit(ctx context.Context, transactionID string) (*LedgerEntry, int64, error)
	Withdraw(ctx context.Context, params WithdrawParams) (int64, error)
	Transfer(ctx context.Context, params TransferParams) (int64, error)
	GetTransactions(ctx context.Context, userID int64) ([]*LedgerEntry, error)
}

// AuthService определяет методы аутентификации
type AuthService interface {
	Register(ctx context.Context, login, password string, role Role, vehicleType string) (string, error)
	Login(ctx context.Context, login, password string) (string, error)
}

// PlaceOrderInput представляет запрос покупателя на оформление заказа
type PlaceOrderInput struct {
	Items           []OrderItemSpec
	ShippingAddress string
	PaymentMethod   PaymentMethod
	WashQuantity    int32
	IdempotencyKey  string
}

// OrderService определяет операции жизненного цикла заказа
type OrderService interface {
	PlaceOrder(ctx context.Context, caller Caller, input PlaceOrderInput) (*Order, error)
	CancelOrder(ctx context.Context, caller Caller, orderID int64) (*Order, error)
	SetStatus(ctx context.Context, caller Caller, orderID int64, status OrderStatus) (*Order, error)
	AssignDriver(ctx context.Context, caller Caller, orderID, driverID int64) (*Order, *Driver, error)
	MarkDelivered(ctx context.Context, caller Caller, orderID int64) (*Order, error)
	GetOrders(ctx context.Context, caller Caller) ([]*Order, error)
	TrackOrder(ctx context.Context, caller Caller, code string) (*Order, error)
}

// DepositInput представляет запрос на пополнение кошелька
type DepositInput struct {
	Amount         int64
	Method         string
	IdempotencyKey string
}

// DepositResult представляет результат пополнения
type DepositResult struct {
	TransactionID string       `json:"transaction_id"`
	Status        LedgerStatus `json:"status"`
	NewBalance    *int64       `json:"new_balance,omitempty"` // Только для мгновенных методов
}

// WithdrawInput представляет запрос на вывод средств
type WithdrawInput struct {
	Amount        int64
	Method        string
	AccountNumber string
	AccountName   string
}

// WithdrawResult представляет результат вывода средств
type WithdrawResult struct {
	TransactionID string `json:"transaction_id"`
	Fee           int64  `json:"fee"` // Информационно для канала выплаты
	NewBalance    int64  `json:"new_balance"`
}

// TransferInput представляет запрос на перевод между пользователями
type TransferInput struct {
	ToUserID int64
	Amount   int64
	Note     string
}

// WalletService определяет операции кошелька
type WalletService interface {
	Deposit(ctx context.Context, caller Caller, input DepositInput) (*DepositResult, error)
	ConfirmDeposit(ctx context.Context, caller Caller, transactionID string) (*LedgerEntry, error)
	Withdraw(ctx context.Context, caller Caller, input WithdrawInput) (*WithdrawResult, error)
	Transfer(ctx context.Context, caller Caller, input TransferInput) (int64, error)
	GetBalance(ctx context.Context, caller Caller) (*Wallet, error)
	GetTransactions(ctx context.Context, caller Caller) ([]*LedgerEntry, error)
}

// ProductService определяет операции с товарами
type ProductService interface {
	CreateProduct(ctx context.Context, caller Caller, product *Product) (*Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
}

// IdempotencyStore определяет короткоживущее хранилище ответов по
// клиентскому ключу идемпотентности
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, error) // (nil, nil), если ключа нет
	Set(ctx context.Context, key string, payload []byte) error
}
