package app

import (
	"context"
	"fmt"

	"github.com/avc/marketplace-backend/internal/config"
	"github.com/avc/marketplace-backend/internal/notify"
	"github.com/avc/marketplace-backend/internal/repository/postgres"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// initDatabase создает пул соединений с базой данных и выполняет миграции
func initDatabase(ctx context.Context, databaseURI string, logger *zap.Logger) (*pgxpool.Pool, error) {
	dbPool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.RunMigrations(ctx, dbPool, logger); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations completed successfully")

	return dbPool, nil
}

// initRedis подключается к Redis, если адрес задан
func initRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// initSink выбирает канал доставки уведомлений
func initSink(cfg *config.Config, logger *zap.Logger) (notify.Sink, *notify.AMQPSink, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP not configured, notifications go to log")
		return notify.NewLogSink(logger), nil, nil
	}

	amqpSink, err := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	logger.Info("connected to AMQP broker", zap.String("exchange", cfg.AMQPExchange))

	return amqpSink, amqpSink, nil
}
