package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config содержит конфигурацию приложения
type Config struct {
	RunAddress   string        // Адрес и порт запуска сервиса
	DatabaseURI  string        // URI подключения к БД
	RedisAddr    string        // Адрес Redis (пусто — идемпотентность отключена)
	AMQPURL      string        // URL брокера уведомлений (пусто — лог-заглушка)
	AMQPExchange string        // Exchange для событий уведомлений
	JWTSecret    string        // Секретный ключ для JWT
	JWTTokenTTL  time.Duration // Время жизни JWT токена
	LogLevel     string        // Уровень логирования

	// Диспетчер уведомлений
	NotifyWorkers   int // Количество воркеров
	NotifyQueueSize int // Размер очереди событий

	// Валидация
	MinPasswordLength int // Минимальная длина пароля

	// Денежные параметры (минорные единицы)
	WashFeePerUnit   int64 // Наценка за единицу мойки в заказе
	WithdrawMin      int64 // Минимальная сумма вывода
	WithdrawMax      int64 // Максимальная сумма вывода
	WithdrawDailyCap int64 // Суточный лимит выводов
	MinFee           int64 // Минимальная комиссия

	// Ставки комиссий
	WithdrawFeeRate decimal.Decimal
	TransferFeeRate decimal.Decimal
}

// Load загружает конфигурацию из переменных окружения и флагов
// Приоритет: env переменные > флаги > дефолтные значения
func Load() (*Config, error) {
	// .env не обязателен, ошибки отсутствия файла игнорируются
	_ = godotenv.Load()

	cfg := &Config{
		AMQPExchange:      "marketplace.events",
		JWTTokenTTL:       24 * time.Hour,
		LogLevel:          "info",
		NotifyWorkers:     3,
		NotifyQueueSize:   100,
		MinPasswordLength: 6,
		WashFeePerUnit:    500,
		WithdrawMin:       1000,
		WithdrawMax:       100000000,
		WithdrawDailyCap:  500000000,
		MinFee:            100,
		WithdrawFeeRate:   decimal.NewFromFloat(0.01),
		TransferFeeRate:   decimal.NewFromFloat(0.005),
	}

	// Определяем флаги
	flag.StringVar(&cfg.RunAddress, "a", ":8080", "address and port to run server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddr, "r", "", "redis address for idempotency store")
	flag.Parse()

	// Переменные окружения имеют приоритет над флагами
	if envRunAddr, ok := os.LookupEnv("RUN_ADDRESS"); ok {
		cfg.RunAddress = envRunAddr
	}

	if envDBURI, ok := os.LookupEnv("DATABASE_URI"); ok {
		cfg.DatabaseURI = envDBURI
	}

	if envRedisAddr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.RedisAddr = envRedisAddr
	}

	if envAMQPURL, ok := os.LookupEnv("AMQP_URL"); ok {
		cfg.AMQPURL = envAMQPURL
	}

	if envAMQPExchange, ok := os.LookupEnv("AMQP_EXCHANGE"); ok {
		cfg.AMQPExchange = envAMQPExchange
	}

	// JWT секрет (только из env, не из флагов для безопасности)
	if envJWTSecret, ok := os.LookupEnv("JWT_SECRET"); ok {
		cfg.JWTSecret = envJWTSecret
	} else {
		cfg.JWTSecret = "default-secret-key-change-in-production"
	}

	if envTokenTTL, ok := os.LookupEnv("JWT_TOKEN_TTL"); ok {
		if ttl, err := time.ParseDuration(envTokenTTL); err == nil && ttl > 0 {
			cfg.JWTTokenTTL = ttl
		}
	}

	// Уровень логирования
	if envLogLevel, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.LogLevel = envLogLevel
	}

	// Диспетчер уведомлений
	if envWorkers, ok := os.LookupEnv("NOTIFY_WORKERS"); ok {
		if workers, err := strconv.Atoi(envWorkers); err == nil && workers > 0 {
			cfg.NotifyWorkers = workers
		}
	}

	if envQueueSize, ok := os.LookupEnv("NOTIFY_QUEUE_SIZE"); ok {
		if size, err := strconv.Atoi(envQueueSize); err == nil && size > 0 {
			cfg.NotifyQueueSize = size
		}
	}

	// Денежные параметры
	loadMoneyEnv(&cfg.WashFeePerUnit, "WASH_FEE_PER_UNIT")
	loadMoneyEnv(&cfg.WithdrawMin, "WITHDRAW_MIN")
	loadMoneyEnv(&cfg.WithdrawMax, "WITHDRAW_MAX")
	loadMoneyEnv(&cfg.WithdrawDailyCap, "WITHDRAW_DAILY_CAP")
	loadMoneyEnv(&cfg.MinFee, "MIN_FEE")

	loadRateEnv(&cfg.WithdrawFeeRate, "WITHDRAW_FEE_RATE")
	loadRateEnv(&cfg.TransferFeeRate, "TRANSFER_FEE_RATE")

	// Валидация обязательных параметров
	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI is required (use -d flag or DATABASE_URI env)")
	}

	if cfg.WithdrawMin > cfg.WithdrawMax {
		return nil, fmt.Errorf("withdraw min %d exceeds max %d", cfg.WithdrawMin, cfg.WithdrawMax)
	}

	return cfg, nil
}

// loadMoneyEnv перезаписывает значение из env, если оно корректное
func loadMoneyEnv(dst *int64, name string) {
	if env, ok := os.LookupEnv(name); ok {
		if v, err := strconv.ParseInt(env, 10, 64); err == nil && v >= 0 {
			*dst = v
		}
	}
}

// loadRateEnv перезаписывает ставку комиссии из env, если она корректная
func loadRateEnv(dst *decimal.Decimal, name string) {
	if env, ok := os.LookupEnv(name); ok {
		if rate, err := decimal.NewFromString(env); err == nil && !rate.IsNegative() {
			*dst = rate
		}
	}
}
