package app

import (
	"time"

	"github.com/avc/marketplace-backend/internal/config"
	"github.com/avc/marketplace-backend/internal/domain"
	"github.com/avc/marketplace-backend/internal/handlers"
	"github.com/avc/marketplace-backend/internal/notify"
	"github.com/avc/marketplace-backend/internal/repository/postgres"
	"github.com/avc/marketplace-backend/internal/repository/redisstore"
	"github.com/avc/marketplace-backend/internal/service"
	"github.com/avc/marketplace-backend/internal/utils/jwt"
	"github.com/avc/marketplace-backend/internal/utils/password"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Ответы по ключу идемпотентности хранятся сутки
const idempotencyTTL = 24 * time.Hour

// repositories содержит все репозитории приложения
type repositories struct {
	user    domain.UserRepository
	product domain.ProductRepository
	order   domain.OrderRepository
	wallet  domain.WalletRepository
}

// services содержит все сервисы приложения
type services struct {
	auth    domain.AuthService
	order   domain.OrderService
	wallet  domain.WalletService
	product domain.ProductService
}

// handlerSet содержит все хендлеры приложения
type handlerSet struct {
	auth     *handlers.AuthHandler
	orders   *handlers.OrdersHandler
	wallet   *handlers.WalletHandler
	products *handlers.ProductsHandler
	health   *handlers.HealthHandler
}

// dependencies содержит все зависимости приложения
type dependencies struct {
	repos      *repositories
	services   *services
	handlers   *handlerSet
	jwtManager *jwt.Manager
}

// initDependencies создает все зависимости приложения
func initDependencies(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	redisClient *redis.Client,
	dispatcher *notify.Dispatcher,
	logger *zap.Logger,
) *dependencies {
	// Создание репозиториев
	repos := &repositories{
		user:    postgres.NewUserRepository(dbPool),
		product: postgres.NewProductRepository(dbPool),
		order:   postgres.NewOrderRepository(dbPool, logger),
		wallet:  postgres.NewWalletRepository(dbPool),
	}

	// Создание утилит
	passwordHasher := password.NewBCryptHasher(password.DefaultCost)
	jwtManager := jwt.NewManager(cfg.JWTSecret, cfg.JWTTokenTTL)

	// Хранилище идемпотентности включается только при наличии Redis
	var idempotency domain.IdempotencyStore
	if redisClient != nil {
		idempotency = redisstore.NewIdempotencyStore(redisClient, idempotencyTTL)
	}

	// Создание сервисов
	authServiceConfig := service.AuthServiceConfig{
		MinPasswordLength: cfg.MinPasswordLength,
	}
	orderServiceConfig := service.OrderServiceConfig{
		WashFeePerUnit: cfg.WashFeePerUnit,
	}
	walletServiceConfig := service.WalletServiceConfig{
		WithdrawMin:      cfg.WithdrawMin,
		WithdrawMax:      cfg.WithdrawMax,
		WithdrawDailyCap: cfg.WithdrawDailyCap,
		MinFee:           cfg.MinFee,
		WithdrawFeeRate:  cfg.WithdrawFeeRate,
		TransferFeeRate:  cfg.TransferFeeRate,
	}
	svcs := &services{
		auth:    service.NewAuthService(repos.user, passwordHasher, jwtManager, authServiceConfig),
		order:   service.NewOrderService(repos.order, dispatcher, idempotency, orderServiceConfig, logger),
		wallet:  service.NewWalletService(repos.wallet, repos.user, dispatcher, idempotency, walletServiceConfig, logger),
		product: service.NewProductService(repos.product),
	}

	// Создание handlers
	hdlrs := &handlerSet{
		auth:     handlers.NewAuthHandler(svcs.auth, logger),
		orders:   handlers.NewOrdersHandler(svcs.order, logger),
		wallet:   handlers.NewWalletHandler(svcs.wallet, logger),
		products: handlers.NewProductsHandler(svcs.product, logger),
		health:   handlers.NewHealthHandler(dbPool, logger),
	}

	return &dependencies{
		repos:      repos,
		services:   svcs,
		handlers:   hdlrs,
		jwtManager: jwtManager,
	}
}
