package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/taskearn/paycore/internal/adapter/gateway/mpesa"
	httpAdapter "github.com/taskearn/paycore/internal/adapter/http"
	"github.com/taskearn/paycore/internal/adapter/http/handler"
	"github.com/taskearn/paycore/internal/adapter/http/middleware"
	postgresRepo "github.com/taskearn/paycore/internal/adapter/repository/postgres"
	redisRepo "github.com/taskearn/paycore/internal/adapter/repository/redis"
	"github.com/taskearn/paycore/internal/infrastructure/config"
	"github.com/taskearn/paycore/internal/infrastructure/logger"
	"github.com/taskearn/paycore/internal/infrastructure/logging"
	"github.com/taskearn/paycore/internal/infrastructure/metrics"
	"github.com/taskearn/paycore/internal/infrastructure/postgres"
	"github.com/taskearn/paycore/internal/infrastructure/redis"
	"github.com/taskearn/paycore/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup loggers: zerolog for request/process logs, slog wrapper for
	// the use case layer.
	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := context.Background()

	// Connect to PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Run migrations
	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	retrier := postgresRepo.NewRetrier()
	accountRepo := postgresRepo.NewAccountRepository(pool)
	intentRepo := postgresRepo.NewIntentRepository(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	commissionRepo := postgresRepo.NewCommissionRepository(pool)
	withdrawalRepo := postgresRepo.NewWithdrawalRepository(pool)
	settingRepo := postgresRepo.NewSettingRepository(pool)
	cache := redisRepo.NewCache(redisClient)
	notifier := redisRepo.NewNotifier(redisClient, m)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize gateway
	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:            cfg.MpesaBaseURL,
		ConsumerKey:        cfg.MpesaConsumerKey,
		ConsumerSecret:     cfg.MpesaConsumerSecret,
		ShortCode:          cfg.MpesaShortCode,
		Passkey:            cfg.MpesaPasskey,
		InitiatorName:      cfg.MpesaInitiatorName,
		SecurityCredential: cfg.MpesaSecurityCredential,
		CallbackBaseURL:    cfg.MpesaCallbackBaseURL,
		Timeout:            cfg.MpesaTimeout,
	}, appLogger, m)

	// Initialize use cases
	settingsUC := usecase.NewSettingsUseCase(settingRepo, cache, appLogger)
	ledgerUC := usecase.NewLedgerUseCase(txManager, retrier, accountRepo, entryRepo, idGen, appLogger, m)
	commissionUC := usecase.NewCommissionUseCase(txManager, retrier, accountRepo, commissionRepo, ledgerUC, settingsUC, idGen, appLogger, m)
	paymentUC := usecase.NewPaymentUseCase(txManager, retrier, accountRepo, intentRepo, ledgerUC, commissionUC, settingsUC, gateway, notifier, idGen, appLogger, m)
	callbackUC := usecase.NewCallbackUseCase(txManager, retrier, accountRepo, intentRepo, withdrawalRepo, ledgerUC, commissionUC, notifier, appLogger, m)
	withdrawalUC := usecase.NewWithdrawalUseCase(txManager, retrier, accountRepo, withdrawalRepo, intentRepo, ledgerUC, settingsUC, gateway, notifier, idGen, appLogger, m)
	statusUC := usecase.NewStatusUseCase(intentRepo, withdrawalRepo, appLogger)
	sweepUC := usecase.NewSweepUseCase(txManager, retrier, accountRepo, intentRepo, withdrawalRepo, ledgerUC, gateway, notifier, appLogger, m, cfg.PendingIntentTTL, cfg.SweepInterval)

	// Initialize handlers
	paymentHandler := handler.NewPaymentHandler(paymentUC, ledgerUC)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalUC)
	commissionHandler := handler.NewCommissionHandler(commissionUC)
	settingsHandler := handler.NewSettingsHandler(settingsUC)
	statusHandler := handler.NewStatusHandler(statusUC, cfg.AwaitInterval, cfg.AwaitAttempts)
	callbackHandler := handler.NewCallbackHandler(callbackUC, appLogger)
	streamHandler := handler.NewStreamHandler(notifier, appLogger)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		PaymentHandler:    paymentHandler,
		WithdrawalHandler: withdrawalHandler,
		CommissionHandler: commissionHandler,
		SettingsHandler:   settingsHandler,
		StatusHandler:     statusHandler,
		CallbackHandler:   callbackHandler,
		StreamHandler:     streamHandler,
		HealthHandler:     healthHandler,
		Logging:           middleware.NewLoggingMiddleware(log.Logger),
		Metrics:           middleware.NewMetricsMiddleware(m),
	})

	// Start the pending-intent sweep in the background.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepUC.Start(sweepCtx)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopSweep()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
