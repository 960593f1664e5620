package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WalletHandler struct {
	walletService domain.WalletService
	logger        *zap.Logger
}

func NewWalletHandler(walletService domain.WalletService, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

type depositRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := h.walletService.Deposit(r.Context(), caller, domain.DepositInput{
		Amount:         req.Amount,
		Method:         req.Method,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to deposit", zap.Error(err), zap.Int64("user_id", caller.UserID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	// Для отложенных методов запись журнала остается pending до подтверждения
	status := http.StatusOK
	if result.Status == domain.LedgerStatusPending {
		status = http.StatusAccepted
	}
	writeJSON(w, h.logger, status, result)
}

func (h *WalletHandler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	entry, err := h.walletService.ConfirmDeposit(r.Context(), caller, transactionID)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to confirm deposit", zap.Error(err), zap.String("transaction_id", transactionID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, entry)
}

type withdrawRequest struct {
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	result, err := h.walletService.Withdraw(r.Context(), caller, domain.WithdrawInput{
		Amount:        req.Amount,
		Method:        req.Method,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to withdraw", zap.Error(err), zap.Int64("user_id", caller.UserID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, result)
}

type transferRequest struct {
	ToUserID int64  `json:"to_user_id"`
	Amount   int64  `json:"amount"`
	Note     string `json:"note,omitempty"`
}

type transferResponse struct {
	NewBalance int64 `json:"new_balance"`
}

func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	newBalance, err := h.walletService.Transfer(r.Context(), caller, domain.TransferInput{
		ToUserID: req.ToUserID,
		Amount:   req.Amount,
		Note:     req.Note,
	})
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to transfer", zap.Error(err), zap.Int64("user_id", caller.UserID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, transferResponse{NewBalance: newBalance})
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	wallet, err := h.walletService.GetBalance(r.Context(), caller)
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to get balance", zap.Error(err), zap.Int64("user_id", caller.UserID))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, wallet)
}

func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := h.walletService.GetTransactions(r.Context(), caller)
	if err != nil {
		h.logger.Error("failed to get transactions", zap.Error(err), zap.Int64("user_id", caller.UserID))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, entries)
}
