package app

import (
	"fmt"

	"go.uber.org/zap"
)

// initLogger создает логгер приложения. Уровень debug включает
// development-конфигурацию с читаемым выводом, остальные уровни собирают
// production-логгер с соответствующим порогом.
func initLogger(logLevel string) (*zap.Logger, error) {
	if logLevel == "debug" {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to init logger: %w", err)
		}
		return logger, nil
	}

	cfg := zap.NewProductionConfig()
	if level, err := zap.ParseAtomicLevel(logLevel); err == nil {
		cfg.Level = level
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	return logger, nil
}
