package handlers

import (
	"errors"
	"net/http"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/avc/marketplace-backend/internal/service"
)

// errorStatus сопоставляет доменные ошибки HTTP-статусам.
// Неопознанные ошибки считаются сбоем хранилища и отдаются как 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrDriverNotFound),
		errors.Is(err, domain.ErrWalletNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDriverUnavailable),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWithdrawalLimit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
