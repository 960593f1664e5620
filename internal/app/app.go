package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avc/marketplace-backend/internal/config"
	"github.com/avc/marketplace-backend/internal/notify"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App представляет приложение
type App struct {
	config     *config.Config
	logger     *zap.Logger
	db         *pgxpool.Pool
	redis      *redis.Client
	amqpSink   *notify.AMQPSink
	dispatcher *notify.Dispatcher
	router     *chi.Mux
	server     *http.Server
}

// NewApp создает новое приложение
func NewApp() (*App, error) {
	ctx := context.Background()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализация логгера
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// Инициализация базы данных и миграций
	dbPool, err := initDatabase(ctx, cfg.DatabaseURI, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	// Redis для идемпотентности, необязателен
	redisClient, err := initRedis(ctx, cfg.RedisAddr)
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	if redisClient != nil {
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	// Канал доставки уведомлений: AMQP либо лог-заглушка
	sink, amqpSink, err := initSink(cfg, logger)
	if err != nil {
		dbPool.Close()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, sink, logger)

	// Инициализация зависимостей
	deps := initDependencies(cfg, dbPool, redisClient, dispatcher, logger)

	// Настройка роутера
	router := setupRouter(deps, deps.jwtManager, logger)

	// Создание HTTP сервера
	server := createServer(cfg.RunAddress, router)

	return &App{
		config:     cfg,
		logger:     logger,
		db:         dbPool,
		redis:      redisClient,
		amqpSink:   amqpSink,
		dispatcher: dispatcher,
		router:     router,
		server:     server,
	}, nil
}

// Run запускает приложение
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск диспетчера уведомлений
	a.dispatcher.Start(ctx)
	a.logger.Info("notification dispatcher started")

	// Запуск HTTP сервера и ожидание сигнала завершения
	if err := a.runServer(ctx); err != nil {
		return err
	}

	// Graceful shutdown
	a.shutdown(cancel)

	return nil
}
