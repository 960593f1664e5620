package service

import (
	"context"
	"testing"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func walletTestConfig() WalletServiceConfig {
	return WalletServiceConfig{
		WithdrawMin:      1000,
		WithdrawMax:      100000,
		WithdrawDailyCap: 500000,
		MinFee:           100,
		WithdrawFeeRate:  decimal.NewFromFloat(0.01),
		TransferFeeRate:  decimal.NewFromFloat(0.005),
	}
}

func newWalletService(walletRepo *mockWalletRepo, userRepo *mockUserRepo,
	notifier *recordingNotifier, idempotency domain.IdempotencyStore) *WalletService {
	return NewWalletService(walletRepo, userRepo, notifier, idempotency,
		walletTestConfig(), zap.NewNop())
}

func TestWalletService_Deposit(t *testing.T) {
	ctx := context.Background()
	buyer := domain.Caller{UserID: 1, Role: domain.RoleBuyer}

	t.Run("Card deposit is credited immediately", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, new(mockUserRepo), notifier, nil)

		walletRepo.On("Deposit", ctx, mock.MatchedBy(func(entry *domain.LedgerEntry) bool {
			return entry.UserID == buyer.UserID &&
				entry.Amount == int64(5000) &&
				entry.Status == domain.LedgerStatusCompleted &&
				entry.TransactionID != ""
		})).Return(int64(5000), nil)

		result, err := svc.Deposit(ctx, buyer, domain.DepositInput{
			Amount: 5000,
			Method: domain.DepositMethodCard,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStatusCompleted, result.Status)
		require.NotNil(t, result.NewBalance)
		assert.Equal(t, int64(5000), *result.NewBalance)

		events := notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventDepositConfirmed, events[0].Type)

		walletRepo.AssertExpectations(t)
	})

	t.Run("Bank transfer stays pending", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, new(mockUserRepo), notifier, nil)

		walletRepo.On("Deposit", ctx, mock.MatchedBy(func(entry *domain.LedgerEntry) bool {
			return entry.Status == domain.LedgerStatusPending
		})).Return(int64(0), nil)

		result, err := svc.Deposit(ctx, buyer, domain.DepositInput{
			Amount: 5000,
			Method: domain.DepositMethodBankTransfer,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStatusPending, result.Status)
		assert.Nil(t, result.NewBalance)

		events := notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventDepositPending, events[0].Type)
	})

	t.Run("Invalid input", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		_, err := svc.Deposit(ctx, buyer, domain.DepositInput{Amount: 0, Method: domain.DepositMethodCard})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = svc.Deposit(ctx, buyer, domain.DepositInput{Amount: 100, Method: "crypto"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		walletRepo.AssertNotCalled(t, "Deposit")
	})

	t.Run("Repeated idempotency key returns first response", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{},
			newMemoryIdempotencyStore())

		walletRepo.On("Deposit", ctx, mock.Anything).Return(int64(5000), nil).Once()

		input := domain.DepositInput{
			Amount:         5000,
			Method:         domain.DepositMethodCard,
			IdempotencyKey: "dep-key-1",
		}

		first, err := svc.Deposit(ctx, buyer, input)
		require.NoError(t, err)

		second, err := svc.Deposit(ctx, buyer, input)
		require.NoError(t, err)
		assert.Equal(t, first.TransactionID, second.TransactionID)

		walletRepo.AssertNumberOfCalls(t, "Deposit", 1)
	})
}

func TestWalletService_ConfirmDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("Admin confirms", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, new(mockUserRepo), notifier, nil)

		admin := domain.Caller{UserID: 99, Role: domain.RoleAdmin}
		entry := &domain.LedgerEntry{
			TransactionID: "tx-1",
			UserID:        1,
			Amount:        5000,
			Status:        domain.LedgerStatusCompleted,
		}
		walletRepo.On("ConfirmDeposit", ctx, "tx-1").Return(entry, int64(5000), nil)

		confirmed, err := svc.ConfirmDeposit(ctx, admin, "tx-1")
		require.NoError(t, err)
		assert.Equal(t, domain.LedgerStatusCompleted, confirmed.Status)

		events := notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, int64(1), events[0].UserID)
	})

	t.Run("Non-admin is rejected", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		buyer := domain.Caller{UserID: 1, Role: domain.RoleBuyer}
		_, err := svc.ConfirmDeposit(ctx, buyer, "tx-1")
		assert.ErrorIs(t, err, domain.ErrForbidden)

		walletRepo.AssertNotCalled(t, "ConfirmDeposit")
	})

	t.Run("Double confirmation passes through", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		admin := domain.Caller{UserID: 99, Role: domain.RoleAdmin}
		walletRepo.On("ConfirmDeposit", ctx, "tx-1").
			Return(nil, int64(0), domain.ErrTransactionNotFound)

		_, err := svc.ConfirmDeposit(ctx, admin, "tx-1")
		assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	})
}

func TestWalletService_Withdraw(t *testing.T) {
	ctx := context.Background()
	seller := domain.Caller{UserID: 5, Role: domain.RoleSeller}

	validInput := domain.WithdrawInput{
		Amount:        10000,
		Method:        "bank_transfer",
		AccountNumber: "40817810000000000001",
		AccountName:   "Иван Иванов",
	}

	t.Run("Success - fee is informational", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, new(mockUserRepo), notifier, nil)

		// Списывается ровно запрошенная сумма, комиссия не вычитается
		walletRepo.On("Withdraw", ctx, mock.MatchedBy(func(params domain.WithdrawParams) bool {
			return params.UserID == seller.UserID &&
				params.Amount == int64(10000) &&
				params.DailyCap == int64(500000)
		})).Return(int64(40000), nil)

		result, err := svc.Withdraw(ctx, seller, validInput)
		require.NoError(t, err)
		// 1% от 10000 = 100, не меньше минимальной
		assert.Equal(t, int64(100), result.Fee)
		assert.Equal(t, int64(40000), result.NewBalance)
		assert.NotEmpty(t, result.TransactionID)

		require.Len(t, notifier.Events(), 1)
		walletRepo.AssertExpectations(t)
	})

	t.Run("Amount below minimum", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		input := validInput
		input.Amount = 500
		_, err := svc.Withdraw(ctx, seller, input)
		assert.ErrorIs(t, err, ErrInvalidInput)

		walletRepo.AssertNotCalled(t, "Withdraw")
	})

	t.Run("Amount above maximum", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		input := validInput
		input.Amount = 200000
		_, err := svc.Withdraw(ctx, seller, input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Unknown payout method", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		// Служебный метод внутренних переводов не является каналом выплаты
		for _, method := range []string{"", "cash", "transfer"} {
			input := validInput
			input.Method = method
			_, err := svc.Withdraw(ctx, seller, input)
			assert.ErrorIs(t, err, ErrInvalidInput, "method %q", method)
		}

		walletRepo.AssertNotCalled(t, "Withdraw")
	})

	t.Run("Missing payout details", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		input := validInput
		input.AccountNumber = ""
		_, err := svc.Withdraw(ctx, seller, input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Daily cap passes through", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, new(mockUserRepo), notifier, nil)

		walletRepo.On("Withdraw", ctx, mock.Anything).
			Return(int64(0), domain.ErrWithdrawalLimit)

		_, err := svc.Withdraw(ctx, seller, validInput)
		assert.ErrorIs(t, err, domain.ErrWithdrawalLimit)
		assert.Empty(t, notifier.Events())
	})
}

func TestWalletService_Transfer(t *testing.T) {
	ctx := context.Background()
	sender := domain.Caller{UserID: 1, Role: domain.RoleBuyer}

	t.Run("Success - fee on top of amount", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		userRepo := new(mockUserRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, userRepo, notifier, nil)

		userRepo.On("GetUserByID", ctx, int64(2)).
			Return(&domain.User{ID: 2, Login: "friend"}, nil)

		// 0.5% от 40000 = 200; получатель получает ровно 40000
		walletRepo.On("Transfer", ctx, mock.MatchedBy(func(params domain.TransferParams) bool {
			return params.FromUserID == int64(1) &&
				params.ToUserID == int64(2) &&
				params.Amount == int64(40000) &&
				params.Fee == int64(200) &&
				params.OutTransactionID != params.InTransactionID
		})).Return(int64(9800), nil)

		newBalance, err := svc.Transfer(ctx, sender, domain.TransferInput{
			ToUserID: 2,
			Amount:   40000,
			Note:     "ужин",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9800), newBalance)

		// Отправитель и получатель получают события
		events := notifier.Events()
		require.Len(t, events, 2)
		assert.Equal(t, domain.EventTransferOut, events[0].Type)
		assert.Equal(t, domain.EventTransferIn, events[1].Type)
		assert.Equal(t, int64(2), events[1].UserID)

		walletRepo.AssertExpectations(t)
	})

	t.Run("Minimum fee applies to small transfers", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		userRepo := new(mockUserRepo)
		svc := newWalletService(walletRepo, userRepo, &recordingNotifier{}, nil)

		userRepo.On("GetUserByID", ctx, int64(2)).
			Return(&domain.User{ID: 2}, nil)

		// 0.5% от 1000 = 5, но минимальная комиссия 100
		walletRepo.On("Transfer", ctx, mock.MatchedBy(func(params domain.TransferParams) bool {
			return params.Fee == int64(100)
		})).Return(int64(0), nil)

		_, err := svc.Transfer(ctx, sender, domain.TransferInput{ToUserID: 2, Amount: 1000})
		require.NoError(t, err)

		walletRepo.AssertExpectations(t)
	})

	t.Run("Self transfer is rejected", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		_, err := svc.Transfer(ctx, sender, domain.TransferInput{ToUserID: 1, Amount: 1000})
		assert.ErrorIs(t, err, domain.ErrSelfTransfer)

		walletRepo.AssertNotCalled(t, "Transfer")
	})

	t.Run("Unknown recipient", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		userRepo := new(mockUserRepo)
		svc := newWalletService(walletRepo, userRepo, &recordingNotifier{}, nil)

		userRepo.On("GetUserByID", ctx, int64(404)).
			Return(nil, domain.ErrUserNotFound)

		_, err := svc.Transfer(ctx, sender, domain.TransferInput{ToUserID: 404, Amount: 1000})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)

		walletRepo.AssertNotCalled(t, "Transfer")
	})

	t.Run("Non-positive amount", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

		_, err := svc.Transfer(ctx, sender, domain.TransferInput{ToUserID: 2, Amount: 0})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Insufficient balance passes through", func(t *testing.T) {
		walletRepo := new(mockWalletRepo)
		userRepo := new(mockUserRepo)
		notifier := &recordingNotifier{}
		svc := newWalletService(walletRepo, userRepo, notifier, nil)

		userRepo.On("GetUserByID", ctx, int64(2)).Return(&domain.User{ID: 2}, nil)
		walletRepo.On("Transfer", ctx, mock.Anything).
			Return(int64(0), domain.ErrInsufficientBalance)

		_, err := svc.Transfer(ctx, sender, domain.TransferInput{ToUserID: 2, Amount: 40000})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.Empty(t, notifier.Events())
	})
}

func TestWalletService_GetBalance(t *testing.T) {
	ctx := context.Background()
	buyer := domain.Caller{UserID: 1, Role: domain.RoleBuyer}

	walletRepo := new(mockWalletRepo)
	svc := newWalletService(walletRepo, new(mockUserRepo), &recordingNotifier{}, nil)

	walletRepo.On("GetWallet", ctx, buyer.UserID).
		Return(&domain.Wallet{UserID: 1, Balance: 5000}, nil)

	wallet, err := svc.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), wallet.Balance)
}

func TestCalculateFee(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   decimal.Decimal
		minFee int64
		want   int64
	}{
		{"Rate above minimum", 100000, decimal.NewFromFloat(0.01), 100, 1000},
		{"Minimum fee wins", 1000, decimal.NewFromFloat(0.005), 100, 100},
		{"Fractional fee rounds up", 333, decimal.NewFromFloat(0.01), 1, 4},
		{"Zero rate falls back to minimum", 100000, decimal.Zero, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateFee(tt.amount, tt.rate, tt.minFee))
		})
	}
}
