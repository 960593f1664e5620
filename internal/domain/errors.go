package domain

import "errors"

// Ошибки пользователей
var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("operation not allowed for this role")
)

// Ошибки заказов и товаров
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrOutOfStock        = errors.New("product is out of stock")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Ошибки водителей
var (
	ErrDriverNotFound    = errors.New("driver not found")
	ErrDriverUnavailable = errors.New("driver is not available")
)

// Ошибки кошелька и журнала
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfTransfer        = errors.New("transfer to own wallet is not allowed")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrWithdrawalLimit     = errors.New("withdrawal limit exceeded")
)

// Ошибки инфраструктуры
var (
	// ErrConcurrencyConflict возвращается после исчерпания повторов
	// конфликтующей транзакции; запрос безопасно повторить.
	ErrConcurrencyConflict = errors.New("concurrent update conflict, retry the request")
)
