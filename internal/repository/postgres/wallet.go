package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// WalletRepository реализует domain.WalletRepository. Каждая изменяющая
// операция — одна транзакция: изменение баланса и запись журнала фиксируются
// вместе или не фиксируются вовсе.
type WalletRepository struct {
	db DBTX
}

// NewWalletRepository создает новый WalletRepository
func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetWallet получает кошелек пользователя
func (r *WalletRepository) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet := &domain.Wallet{}

	err := r.db.QueryRow(ctx,
		`SELECT user_id, balance, updated_at
		 FROM wallets
		 WHERE user_id = $1`,
		userID,
	).Scan(&wallet.UserID, &wallet.Balance, &wallet.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("repository: failed to get wallet for user %d: %w", userID, err)
	}

	return wallet, nil
}

// Deposit создает запись журнала пополнения. Completed-запись зачисляет
// кошелек в той же транзакции, pending-запись баланс не трогает.
func (r *WalletRepository) Deposit(ctx context.Context, entry *domain.LedgerEntry) (int64, error) {
	var newBalance int64

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserWallets(ctx, tx, entry.UserID); err != nil {
			return err
		}

		if err := insertLedgerEntry(ctx, tx, entry); err != nil {
			return err
		}

		if entry.Status != domain.LedgerStatusCompleted {
			return nil
		}

		balance, err := creditWallet(ctx, tx, entry.UserID, entry.Amount)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// ConfirmDeposit переводит pending-запись в completed и зачисляет кошелек.
// Условный UPDATE по статусу гарантирует, что повторное подтверждение не
// зачислит деньги второй раз.
func (r *WalletRepository) ConfirmDeposit(ctx context.Context, transactionID string) (*domain.LedgerEntry, int64, error) {
	entry := &domain.LedgerEntry{
		TransactionID: transactionID,
		Status:        domain.LedgerStatusCompleted,
	}
	var newBalance int64

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`UPDATE transactions
			 SET status = 'completed'
			 WHERE transaction_id = $1 AND status = 'pending'
			 RETURNING id, user_id, amount, type, method, note, created_at`,
			transactionID,
		).Scan(&entry.ID, &entry.UserID, &entry.Amount, &entry.Type,
			&entry.Method, &entry.Note, &entry.CreatedAt)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Нет pending-записи: либо неизвестный ID, либо уже подтверждена
				return domain.ErrTransactionNotFound
			}
			return fmt.Errorf("repository: failed to confirm deposit %s: %w", transactionID, err)
		}

		if err := lockUserWallets(ctx, tx, entry.UserID); err != nil {
			return err
		}

		balance, err := creditWallet(ctx, tx, entry.UserID, entry.Amount)
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return entry, newBalance, nil
}

// Withdraw списывает средства: проверка дневного лимита, условное списание
// и запись журнала в одной транзакции под advisory-локом владельца
func (r *WalletRepository) Withdraw(ctx context.Context, params domain.WithdrawParams) (int64, error) {
	var newBalance int64

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserWallets(ctx, tx, params.UserID); err != nil {
			return err
		}

		// Сумма завершенных выплат за окно лимита. Внутренние переводы
		// тоже пишутся типом withdrawal, но лимит не расходуют.
		var withdrawn int64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(-amount), 0)
			 FROM transactions
			 WHERE user_id = $1 AND type = 'withdrawal' AND status = 'completed'
			   AND method <> 'transfer' AND created_at >= $2`,
			params.UserID, params.Since,
		).Scan(&withdrawn)
		if err != nil {
			return fmt.Errorf("repository: failed to sum withdrawals for user %d: %w", params.UserID, err)
		}

		if withdrawn+params.Amount > params.DailyCap {
			return domain.ErrWithdrawalLimit
		}

		balance, err := debitWallet(ctx, tx, params.UserID, params.Amount)
		if err != nil {
			return err
		}
		newBalance = balance

		entry := &domain.LedgerEntry{
			TransactionID: params.TransactionID,
			UserID:        params.UserID,
			Amount:        -params.Amount,
			Type:          domain.LedgerTypeWithdrawal,
			Method:        params.Method,
			Status:        domain.LedgerStatusCompleted,
			Note:          params.Note,
		}
		return insertLedgerEntry(ctx, tx, entry)
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Transfer атомарно переводит средства между кошельками: списание
// отправителя (сумма плюс комиссия), зачисление получателя и две связанные
// записи журнала — все вместе или ничего
func (r *WalletRepository) Transfer(ctx context.Context, params domain.TransferParams) (int64, error) {
	var newBalance int64

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserWallets(ctx, tx, params.FromUserID, params.ToUserID); err != nil {
			return err
		}

		balance, err := debitWallet(ctx, tx, params.FromUserID, params.Amount+params.Fee)
		if err != nil {
			return err
		}
		newBalance = balance

		if _, err := creditWallet(ctx, tx, params.ToUserID, params.Amount); err != nil {
			return err
		}

		outEntry := &domain.LedgerEntry{
			TransactionID: params.OutTransactionID,
			UserID:        params.FromUserID,
			Amount:        -(params.Amount + params.Fee),
			Type:          domain.LedgerTypeWithdrawal,
			Method:        domain.MethodTransfer,
			Status:        domain.LedgerStatusCompleted,
			Note:          params.Note,
		}
		if err := insertLedgerEntry(ctx, tx, outEntry); err != nil {
			return err
		}

		inEntry := &domain.LedgerEntry{
			TransactionID: params.InTransactionID,
			UserID:        params.ToUserID,
			Amount:        params.Amount,
			Type:          domain.LedgerTypeDeposit,
			Method:        domain.MethodTransfer,
			Status:        domain.LedgerStatusCompleted,
			Note:          params.Note,
		}
		return insertLedgerEntry(ctx, tx, inEntry)
	})
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// GetTransactions получает записи журнала пользователя, новые первыми
func (r *WalletRepository) GetTransactions(ctx context.Context, userID int64) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, transaction_id, user_id, amount, type, method, status, note, created_at
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to get transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry := &domain.LedgerEntry{}
		err := rows.Scan(&entry.ID, &entry.TransactionID, &entry.UserID, &entry.Amount,
			&entry.Type, &entry.Method, &entry.Status, &entry.Note, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan transaction: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating transactions: %w", err)
	}

	return entries, nil
}

// creditWallet зачисляет сумму на кошелек и возвращает новый баланс
func creditWallet(ctx context.Context, q executor, userID, amount int64) (int64, error) {
	var balance int64

	err := q.QueryRow(ctx,
		`UPDATE wallets
		 SET balance = balance + $2, updated_at = now()
		 WHERE user_id = $1
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrWalletNotFound
		}
		return 0, fmt.Errorf("repository: failed to credit wallet of user %d: %w", userID, err)
	}

	return balance, nil
}

// debitWallet условно списывает сумму: UPDATE срабатывает только при
// достаточном балансе, поэтому баланс не может уйти в минус даже при
// конкурентных списаниях
func debitWallet(ctx context.Context, q executor, userID, amount int64) (int64, error) {
	var balance int64

	err := q.QueryRow(ctx,
		`UPDATE wallets
		 SET balance = balance - $2, updated_at = now()
		 WHERE user_id = $1 AND balance >= $2
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)

	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("repository: failed to debit wallet of user %d: %w", userID, err)
	}

	// Различаем отсутствующий кошелек и нехватку средств
	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallets WHERE user_id = $1)`,
		userID,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("repository: failed to check wallet of user %d: %w", userID, err)
	}
	if !exists {
		return 0, domain.ErrWalletNotFound
	}
	return 0, domain.ErrInsufficientBalance
}

// insertLedgerEntry добавляет запись журнала внутри открытой транзакции
func insertLedgerEntry(ctx context.Context, q executor, entry *domain.LedgerEntry) error {
	err := q.QueryRow(ctx,
		`INSERT INTO transactions (transaction_id, user_id, amount, type, method, status, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		entry.TransactionID, entry.UserID, entry.Amount, entry.Type,
		entry.Method, entry.Status, entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("repository: failed to create ledger entry for user %d: %w", entry.UserID, err)
	}

	return nil
}
