package app

import (
	"github.com/avc/marketplace-backend/internal/handlers"
	"github.com/avc/marketplace-backend/internal/utils/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// setupRouter создает и настраивает роутер
func setupRouter(deps *dependencies, jwtManager *jwt.Manager, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	setupMiddleware(r, logger)

	// Маршруты
	setupRoutes(r, deps, jwtManager)

	return r
}

// setupMiddleware настраивает middleware для роутера
func setupMiddleware(r *chi.Mux, logger *zap.Logger) {
	r.Use(handlers.RequestIDMiddleware())
	r.Use(handlers.LoggingMiddleware(logger))
	r.Use(handlers.RecoveryMiddleware(logger))
	r.Use(middleware.Compress(5))
}

// setupRoutes настраивает маршруты приложения
func setupRoutes(r *chi.Mux, deps *dependencies, jwtManager *jwt.Manager) {
	// Health check эндпоинты
	r.Get("/health", deps.handlers.health.Health)
	r.Get("/ready", deps.handlers.health.Ready)

	// Публичные эндпоинты
	r.Post("/api/user/register", deps.handlers.auth.Register)
	r.Post("/api/user/login", deps.handlers.auth.Login)
	r.Get("/api/products/{productID}", deps.handlers.products.GetProduct)

	// Защищенные эндпоинты
	r.Group(func(r chi.Router) {
		r.Use(handlers.AuthMiddleware(jwtManager))

		r.Post("/api/products", deps.handlers.products.CreateProduct)

		r.Post("/api/orders", deps.handlers.orders.PlaceOrder)
		r.Get("/api/orders", deps.handlers.orders.GetOrders)
		r.Get("/api/orders/code/{orderCode}", deps.handlers.orders.TrackOrder)
		r.Post("/api/orders/{orderID}/cancel", deps.handlers.orders.CancelOrder)
		r.Post("/api/orders/{orderID}/status", deps.handlers.orders.SetStatus)
		r.Post("/api/orders/{orderID}/assign", deps.handlers.orders.AssignDriver)
		r.Post("/api/orders/{orderID}/delivered", deps.handlers.orders.MarkDelivered)

		r.Get("/api/wallet/balance", deps.handlers.wallet.GetBalance)
		r.Get("/api/wallet/transactions", deps.handlers.wallet.GetTransactions)
		r.Post("/api/wallet/deposits", deps.handlers.wallet.Deposit)
		r.Post("/api/wallet/deposits/{transactionID}/confirm", deps.handlers.wallet.ConfirmDeposit)
		r.Post("/api/wallet/withdrawals", deps.handlers.wallet.Withdraw)
		r.Post("/api/wallet/transfers", deps.handlers.wallet.Transfer)
	})
}
