// Package routes wires the funds movement engine together and mounts it
// on the fiber application.
package routes

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Manniegenie/ZeusODX-server-sub005/internal/config"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/events"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/handlers"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/middleware"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/providers"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/repositories"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/balance"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/funds"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/idempotency"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/limits"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/pricing"
	"github.com/Manniegenie/ZeusODX-server-sub005/internal/services/twofactor"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes builds the service graph and registers all HTTP routes.
func SetupRoutes(app *fiber.App, db *gorm.DB, logger *slog.Logger) {
	// Repositories
	accountRepo := repositories.NewAccountRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// External collaborators
	priceSource := providers.NewMarketDataSource(
		config.GetEnv("MARKET_DATA_URL", "https://api.marketdata.example.com"),
		config.GetEnv("MARKET_DATA_API_KEY", ""),
		config.GetDurationEnv("MARKET_DATA_TIMEOUT", providers.DefaultMarketTimeout),
	)
	custodyRail := providers.NewCustodyRail(
		config.GetEnv("CUSTODY_API_URL", "https://api.custody.example.com"),
		config.GetEnv("CUSTODY_API_KEY", ""),
		config.GetDurationEnv("CUSTODY_TIMEOUT", providers.DefaultCustodyTimeout),
		logger,
	)
	billRail := providers.NewBillPayRail(
		config.GetEnv("BILLPAY_API_URL", "https://api.billpay.example.com"),
		config.GetEnv("BILLPAY_API_KEY", ""),
		config.GetDurationEnv("BILLPAY_TIMEOUT", 30*time.Second),
		logger,
	)
	payoutRail := providers.NewStripePayoutRail(
		config.GetEnv("STRIPE_SECRET_KEY", ""),
		logger,
	)

	var publisher events.Publisher = events.NoopPublisher{}
	if brokers := config.GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		publisher = events.NewKafkaPublisher(
			strings.Split(brokers, ","),
			config.GetEnv("KAFKA_TOPIC", "transaction-events"),
			logger,
		)
	}

	// Services
	pricingService := pricing.NewService(priceSource, pricing.Config{
		TTL: config.GetDurationEnv("PRICE_CACHE_TTL", pricing.DefaultTTL),
	}, logger)

	balanceService := balance.NewService(accountRepo, nil)

	limitsService := limits.NewService(
		userRepo,
		transactionRepo,
		pricingService,
		repositories.CacheService,
		limits.Config{
			WindowTTL: config.GetDurationEnv("SPEND_WINDOW_TTL", limits.DefaultWindowTTL),
		},
		logger,
	)

	guard := idempotency.NewGuard(transactionRepo, idempotency.Config{
		DefaultWindow: config.GetDurationEnv("DUPLICATE_WINDOW", idempotency.DefaultWindow),
		MaxPending:    config.GetIntEnv("MAX_PENDING_PER_FLOW", idempotency.DefaultMaxPending),
	})

	verifier := twofactor.NewPinVerifier(userRepo)

	fundsService := funds.NewService(
		balanceService,
		transactionRepo,
		guard,
		limitsService,
		verifier,
		funds.Rails{
			Custody:    custodyRail,
			FiatPayout: payoutRail,
			Bill:       billRail,
		},
		publisher,
		funds.Config{
			RailTimeout: config.GetDurationEnv("RAIL_TIMEOUT", funds.DefaultRailTimeout),
		},
		logger,
	)

	// Handlers
	fundsHandler := handlers.NewFundsHandler(fundsService)
	walletHandler := handlers.NewWalletHandler(
		balanceService,
		transactionRepo,
		config.GetEnv("DEPOSIT_WEBHOOK_SECRET", ""),
	)
	authMiddleware := middleware.NewAuthMiddleware(
		userRepo,
		config.GetEnv("JWT_SECRET", "zeusodx"),
		logger,
	)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")
	api.Post("/webhooks/deposit", walletHandler.DepositWebhook)

	authenticated := api.Group("/", authMiddleware.Handler)

	wallet := authenticated.Group("/wallet")
	wallet.Get("/balance/:currency", walletHandler.GetBalance)
	wallet.Post("/withdraw", fundsHandler.Withdraw)

	authenticated.Post("/transfer", fundsHandler.Transfer)
	authenticated.Post("/bills/pay", fundsHandler.PurchaseBill)
	authenticated.Get("/transactions/:id", fundsHandler.GetStatus)
}
