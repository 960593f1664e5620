package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// executor объединяет pgxpool.Pool и pgx.Tx: вспомогательные операции
// (резерв склада, списание кошелька, запись журнала) принимают его и потому
// выполняются только внутри уже открытой единицы работы.
type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DBTX описывает соединение, умеющее открывать транзакции.
// Ему удовлетворяют *pgxpool.Pool и pgxmock.
type DBTX interface {
	executor
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	txMaxRetries = 3
	txRetryDelay = 50 * time.Millisecond
)

// inTx выполняет fn внутри одной транзакции. Конфликты сериализации и
// взаимоблокировки повторяются ограниченное число раз с нарастающей паузой;
// после исчерпания попыток возвращается domain.ErrConcurrencyConflict.
func inTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) error {
	var lastErr error

	for attempt := 0; attempt < txMaxRetries; attempt++ {
		err := runTxOnce(ctx, db, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(txRetryDelay * time.Duration(attempt+1)):
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, lastErr)
}

// runTxOnce выполняет одну попытку транзакции
func runTxOnce(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // Rollback после Commit безопасен

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit transaction: %w", err)
	}

	return nil
}

// isSerializationFailure распознает ошибки, которые безопасно повторить
// (serialization_failure, deadlock_detected)
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// lockUserWallets берет advisory-локи на кошельки в возрастающем порядке
// ID, чтобы два встречных перевода не взаимоблокировались
func lockUserWallets(ctx context.Context, q executor, userIDs ...int64) error {
	ids := make([]int64, len(userIDs))
	copy(ids, userIDs)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}

	for _, id := range ids {
		if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
			return fmt.Errorf("repository: failed to acquire wallet lock for user %d: %w", id, err)
		}
	}

	return nil
}
