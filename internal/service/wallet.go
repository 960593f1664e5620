package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const withdrawalWindow = 24 * time.Hour

// WalletServiceConfig содержит лимиты и ставки комиссий кошелька
type WalletServiceConfig struct {
	WithdrawMin      int64
	WithdrawMax      int64
	WithdrawDailyCap int64
	MinFee           int64
	WithdrawFeeRate  decimal.Decimal
	TransferFeeRate  decimal.Decimal
}

// WalletService реализует domain.WalletService
type WalletService struct {
	walletRepo  domain.WalletRepository
	userRepo    domain.UserRepository
	notifier    domain.Notifier
	idempotency domain.IdempotencyStore // nil, если Redis не настроен
	config      WalletServiceConfig
	logger      *zap.Logger
}

// NewWalletService создает новый WalletService
func NewWalletService(
	walletRepo domain.WalletRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	idempotency domain.IdempotencyStore,
	config WalletServiceConfig,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		walletRepo:  walletRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		idempotency: idempotency,
		config:      config,
		logger:      logger,
	}
}

// Deposit пополняет кошелек. Мгновенные методы зачисляются сразу, ручные
// создают pending-запись до подтверждения администратором.
func (s *WalletService) Deposit(ctx context.Context, caller domain.Caller, input domain.DepositInput) (*domain.DepositResult, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidInput)
	}
	if input.Method != domain.DepositMethodCard && input.Method != domain.DepositMethodBankTransfer {
		return nil, fmt.Errorf("%w: unknown deposit method %q", ErrInvalidInput, input.Method)
	}

	if cached, ok := s.cachedDeposit(ctx, input.IdempotencyKey); ok {
		return cached, nil
	}

	status := domain.LedgerStatusPending
	if input.Method == domain.DepositMethodCard {
		status = domain.LedgerStatusCompleted
	}

	entry := &domain.LedgerEntry{
		TransactionID: uuid.New().String(),
		UserID:        caller.UserID,
		Amount:        input.Amount,
		Type:          domain.LedgerTypeDeposit,
		Method:        input.Method,
		Status:        status,
	}

	newBalance, err := s.walletRepo.Deposit(ctx, entry)
	if err != nil {
		return nil, err
	}

	result := &domain.DepositResult{
		TransactionID: entry.TransactionID,
		Status:        status,
	}
	if status == domain.LedgerStatusCompleted {
		result.NewBalance = &newBalance
	}

	s.storeDeposit(ctx, input.IdempotencyKey, result)

	eventType := domain.EventDepositPending
	title := "Deposit pending confirmation"
	if status == domain.LedgerStatusCompleted {
		eventType = domain.EventDepositConfirmed
		title = "Deposit completed"
	}
	s.notifier.Notify(domain.Event{
		Type:    eventType,
		UserID:  caller.UserID,
		Amount:  &input.Amount,
		Title:   title,
		Message: fmt.Sprintf("Deposit of %d via %s", input.Amount, input.Method),
	})

	return result, nil
}

// ConfirmDeposit подтверждает ручное пополнение (администратор). Зачисление
// происходит ровно один раз даже при повторном подтверждении.
func (s *WalletService) ConfirmDeposit(ctx context.Context, caller domain.Caller, transactionID string) (*domain.LedgerEntry, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	entry, _, err := s.walletRepo.ConfirmDeposit(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventDepositConfirmed,
		UserID:  entry.UserID,
		Amount:  &entry.Amount,
		Title:   "Deposit confirmed",
		Message: fmt.Sprintf("Deposit of %d has been credited", entry.Amount),
	})

	return entry, nil
}

// Withdraw выводит средства. Комиссия информационная: с кошелька списывается
// ровно запрошенная сумма, комиссия сообщается каналу выплаты.
func (s *WalletService) Withdraw(ctx context.Context, caller domain.Caller, input domain.WithdrawInput) (*domain.WithdrawResult, error) {
	if input.Amount < s.config.WithdrawMin {
		return nil, fmt.Errorf("%w: withdrawal amount is below the minimum of %d", ErrInvalidInput, s.config.WithdrawMin)
	}
	if input.Amount > s.config.WithdrawMax {
		return nil, fmt.Errorf("%w: withdrawal amount exceeds the maximum of %d", ErrInvalidInput, s.config.WithdrawMax)
	}
	if input.Method != domain.WithdrawMethodCard && input.Method != domain.WithdrawMethodBankTransfer {
		return nil, fmt.Errorf("%w: unknown payout method %q", ErrInvalidInput, input.Method)
	}
	if input.AccountNumber == "" || input.AccountName == "" {
		return nil, fmt.Errorf("%w: payout account details are required", ErrInvalidInput)
	}

	fee := calculateFee(input.Amount, s.config.WithdrawFeeRate, s.config.MinFee)
	transactionID := uuid.New().String()

	newBalance, err := s.walletRepo.Withdraw(ctx, domain.WithdrawParams{
		UserID:        caller.UserID,
		Amount:        input.Amount,
		Method:        input.Method,
		TransactionID: transactionID,
		Note:          fmt.Sprintf("payout to %s (%s), fee %d", input.AccountNumber, input.AccountName, fee),
		DailyCap:      s.config.WithdrawDailyCap,
		Since:         time.Now().Add(-withdrawalWindow),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventWithdrawal,
		UserID:  caller.UserID,
		Amount:  &input.Amount,
		Title:   "Withdrawal completed",
		Message: fmt.Sprintf("Withdrawal of %d to %s", input.Amount, input.AccountNumber),
	})

	return &domain.WithdrawResult{
		TransactionID: transactionID,
		Fee:           fee,
		NewBalance:    newBalance,
	}, nil
}

// Transfer переводит средства другому пользователю. Комиссия добавляется к
// списанию отправителя; получатель получает ровно запрошенную сумму.
func (s *WalletService) Transfer(ctx context.Context, caller domain.Caller, input domain.TransferInput) (int64, error) {
	if input.Amount <= 0 {
		return 0, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidInput)
	}
	if input.ToUserID == caller.UserID {
		return 0, domain.ErrSelfTransfer
	}

	if _, err := s.userRepo.GetUserByID(ctx, input.ToUserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("wallet service: failed to check recipient %d: %w", input.ToUserID, err)
	}

	fee := calculateFee(input.Amount, s.config.TransferFeeRate, s.config.MinFee)

	newBalance, err := s.walletRepo.Transfer(ctx, domain.TransferParams{
		FromUserID:       caller.UserID,
		ToUserID:         input.ToUserID,
		Amount:           input.Amount,
		Fee:              fee,
		OutTransactionID: uuid.New().String(),
		InTransactionID:  uuid.New().String(),
		Note:             input.Note,
	})
	if err != nil {
		return 0, err
	}

	s.notifier.Notify(domain.Event{
		Type:    domain.EventTransferOut,
		UserID:  caller.UserID,
		Amount:  &input.Amount,
		Title:   "Transfer sent",
		Message: fmt.Sprintf("Transfer of %d sent, fee %d", input.Amount, fee),
	})
	s.notifier.Notify(domain.Event{
		Type:    domain.EventTransferIn,
		UserID:  input.ToUserID,
		Amount:  &input.Amount,
		Title:   "Transfer received",
		Message: fmt.Sprintf("Transfer of %d received", input.Amount),
	})

	return newBalance, nil
}

// GetBalance возвращает кошелек вызывающего
func (s *WalletService) GetBalance(ctx context.Context, caller domain.Caller) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWallet(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("wallet service: failed to get wallet for user %d: %w", caller.UserID, err)
	}

	return wallet, nil
}

// GetTransactions возвращает журнал операций вызывающего
func (s *WalletService) GetTransactions(ctx context.Context, caller domain.Caller) ([]*domain.LedgerEntry, error) {
	entries, err := s.walletRepo.GetTransactions(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("wallet service: failed to get transactions for user %d: %w", caller.UserID, err)
	}

	return entries, nil
}

// cachedDeposit возвращает сохраненный ответ по ключу идемпотентности
func (s *WalletService) cachedDeposit(ctx context.Context, key string) (*domain.DepositResult, bool) {
	if key == "" || s.idempotency == nil {
		return nil, false
	}

	payload, err := s.idempotency.Get(ctx, key)
	if err != nil {
		s.logger.Warn("idempotency store unavailable", zap.Error(err))
		return nil, false
	}
	if payload == nil {
		return nil, false
	}

	result := &domain.DepositResult{}
	if err := json.Unmarshal(payload, result); err != nil {
		s.logger.Warn("failed to decode cached deposit", zap.Error(err))
		return nil, false
	}

	return result, true
}

// storeDeposit сохраняет ответ по ключу идемпотентности
func (s *WalletService) storeDeposit(ctx context.Context, key string, result *domain.DepositResult) {
	if key == "" || s.idempotency == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to encode deposit for idempotency store", zap.Error(err))
		return
	}
	if err := s.idempotency.Set(ctx, key, payload); err != nil {
		s.logger.Warn("failed to store idempotency key", zap.Error(err))
	}
}
