package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// lockDriver читает водителя с блокировкой строки: проверка доступности и
// смена статуса происходят под одной блокировкой внутри единицы работы заказа
func lockDriver(ctx context.Context, q executor, driverID int64) (*domain.Driver, error) {
	driver := &domain.Driver{}

	err := q.QueryRow(ctx,
		`SELECT d.user_id, u.login, d.market_id, d.vehicle_type, d.status, d.updated_at
		 FROM drivers d
		 JOIN users u ON u.id = d.user_id
		 WHERE d.user_id = $1
		 FOR UPDATE OF d`,
		driverID,
	).Scan(&driver.UserID, &driver.Name, &driver.MarketID,
		&driver.VehicleType, &driver.Status, &driver.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDriverNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock driver %d: %w", driverID, err)
	}

	return driver, nil
}

// setDriverStatus меняет статус водителя в той же транзакции, что и
// статус заказа
func setDriverStatus(ctx context.Context, q executor, driverID int64, status domain.DriverStatus) error {
	tag, err := q.Exec(ctx,
		`UPDATE drivers
		 SET status = $2, updated_at = now()
		 WHERE user_id = $1`,
		driverID, status,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to set driver %d status: %w", driverID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDriverNotFound
	}

	return nil
}
