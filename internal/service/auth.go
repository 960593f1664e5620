package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/avc/marketplace-backend/internal/utils/jwt"
	"github.com/avc/marketplace-backend/internal/utils/password"
)

// AuthServiceConfig содержит настройки аутентификации
type AuthServiceConfig struct {
	MinPasswordLength int
}

// AuthService реализует domain.AuthService
type AuthService struct {
	userRepo       domain.UserRepository
	passwordHasher password.Hasher
	jwtManager     *jwt.Manager
	config         AuthServiceConfig
}

// NewAuthService создает новый AuthService
func NewAuthService(
	userRepo domain.UserRepository,
	passwordHasher password.Hasher,
	jwtManager *jwt.Manager,
	config AuthServiceConfig,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		passwordHasher: passwordHasher,
		jwtManager:     jwtManager,
		config:         config,
	}
}

// Register регистрирует нового пользователя с выбранной ролью.
// Роль admin самостоятельной регистрацией не выдается.
func (s *AuthService) Register(ctx context.Context, login, userPassword string, role domain.Role, vehicleType string) (string, error) {
	if login == "" || userPassword == "" {
		return "", fmt.Errorf("%w: empty login or password", ErrInvalidInput)
	}
	if len(userPassword) < s.config.MinPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.config.MinPasswordLength)
	}
	if role == "" {
		role = domain.RoleBuyer
	}
	if !role.Valid() || role == domain.RoleAdmin {
		return "", fmt.Errorf("%w: role %q is not allowed", ErrInvalidInput, role)
	}

	hash, err := s.passwordHasher.Hash(userPassword)
	if err != nil {
		return "", fmt.Errorf("auth service: failed to hash password for user %q: %w", login, err)
	}

	user, err := s.userRepo.CreateUser(ctx, login, hash, role, vehicleType)
	if err != nil {
		// Не оборачиваем sentinel error
		if errors.Is(err, domain.ErrUserExists) {
			return "", err
		}
		return "", fmt.Errorf("auth service: failed to register user %q: %w", login, err)
	}

	token, err := s.jwtManager.Generate(user.ID, string(user.Role))
	if err != nil {
		return "", fmt.Errorf("auth service: failed to generate token for user %d: %w", user.ID, err)
	}

	return token, nil
}

// Login аутентифицирует пользователя
func (s *AuthService) Login(ctx context.Context, login, userPassword string) (string, error) {
	if login == "" || userPassword == "" {
		return "", fmt.Errorf("%w: empty login or password", ErrInvalidInput)
	}

	user, err := s.userRepo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("auth service: failed to get user %q: %w", login, err)
	}

	if err := s.passwordHasher.Check(user.PasswordHash, userPassword); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user.ID, string(user.Role))
	if err != nil {
		return "", fmt.Errorf("auth service: failed to generate token for user %d: %w", user.ID, err)
	}

	return token, nil
}
