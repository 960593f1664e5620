package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepository реализует domain.UserRepository
type UserRepository struct {
	db DBTX
}

// NewUserRepository создает новый UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser создает пользователя вместе с его кошельком; для роли driver
// в той же транзакции заводится водительская запись
func (r *UserRepository) CreateUser(ctx context.Context, login, passwordHash string, role domain.Role, vehicleType string) (*domain.User, error) {
	user := &domain.User{
		Login: login,
		Role:  role,
	}

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (login, password_hash, role)
			 VALUES ($1, $2, $3)
			 RETURNING id, password_hash, created_at`,
			login, passwordHash, role,
		).Scan(&user.ID, &user.PasswordHash, &user.CreatedAt)

		if err != nil {
			// Проверка на уникальность логина (код ошибки PostgreSQL)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrUserExists
			}
			return fmt.Errorf("repository: failed to create user %q: %w", login, err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO wallets (user_id, balance) VALUES ($1, 0)`,
			user.ID,
		); err != nil {
			return fmt.Errorf("repository: failed to create wallet for user %d: %w", user.ID, err)
		}

		if role == domain.RoleDriver {
			if vehicleType == "" {
				vehicleType = "bike"
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO drivers (user_id, vehicle_type, status) VALUES ($1, $2, $3)`,
				user.ID, vehicleType, domain.DriverStatusAvailable,
			); err != nil {
				return fmt.Errorf("repository: failed to create driver record for user %d: %w", user.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByLogin получает пользователя по логину
func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	user := &domain.User{}

	err := r.db.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at
		 FROM users
		 WHERE login = $1`,
		login,
	).Scan(&user.ID, &user.Login, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to get user by login %q: %w", login, err)
	}

	return user, nil
}

// GetUserByID получает пользователя по ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	user := &domain.User{}

	err := r.db.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at
		 FROM users
		 WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Login, &user.PasswordHash, &user.Role, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("repository: failed to get user by id %d: %w", id, err)
	}

	return user, nil
}
