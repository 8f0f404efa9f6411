package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/lorrc/case-event-hub/internal/adapters/primary/http"
	mw "github.com/lorrc/case-event-hub/internal/adapters/primary/http/middleware"
	"github.com/lorrc/case-event-hub/internal/adapters/primary/websocket"
	"github.com/lorrc/case-event-hub/internal/adapters/secondary/directory"
	"github.com/lorrc/case-event-hub/internal/adapters/secondary/email"
	"github.com/lorrc/case-event-hub/internal/adapters/secondary/postgres"
	"github.com/lorrc/case-event-hub/internal/adapters/secondary/registry"
	"github.com/lorrc/case-event-hub/internal/auth"
	"github.com/lorrc/case-event-hub/internal/config"
	"github.com/lorrc/case-event-hub/internal/core/domain"
	"github.com/lorrc/case-event-hub/internal/core/routing"
	"github.com/lorrc/case-event-hub/internal/core/services"
	"github.com/lorrc/case-event-hub/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	// 3. Initialize Database Pool
	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		changed, err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("database migrations applied", "changed", changed)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	// Apply database configuration
	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	dispatcher := services.NewAsyncDispatcher(hub, services.DispatcherConfig{
		Queue: services.QueueConfig{
			Delay:     cfg.Dispatch.Delay,
			QueueSize: cfg.Dispatch.QueueSize,
			Workers:   cfg.Dispatch.Workers,
		},
		SendTimeout: cfg.WebSocket.SendTimeout,
	}, logger)

	// 5. Initialize Rate Limiters
	var webhookRateLimiter, apiRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		webhookLimits := mw.WebhookRateLimiterConfig()
		webhookLimits.RequestsPerSecond = cfg.RateLimit.WebhookRPS
		webhookLimits.BurstSize = cfg.RateLimit.WebhookBurst
		webhookRateLimiter = mw.NewRateLimiter(webhookLimits, mw.ClientIP)

		apiLimits := mw.DefaultRateLimiterConfig()
		apiLimits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		apiLimits.BurstSize = cfg.RateLimit.BurstSize
		apiRateLimiter = mw.NewRateLimiter(apiLimits, mw.UserOrIP)
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	preferenceRepo := postgres.NewPreferenceRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	signalRepo := postgres.NewSignalRepository(pool)
	mailQueue := postgres.NewMailQueueRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	// Registries and mail (Secondary Adapters)
	caseRegistry := registry.New(registry.Config{
		BaseURL: cfg.Registry.BaseURL,
		Token:   cfg.Registry.Token,
		Timeout: cfg.Registry.Timeout,
	}, logger)

	contacts := directory.Empty()
	if cfg.Signals.DirectoryFile != "" {
		contacts, err = directory.Load(cfg.Signals.DirectoryFile)
		if err != nil {
			logger.Error("failed to load directory", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no directory file configured, signal mails cannot be addressed")
	}
	users, groups := contacts.Len()
	logger.Info("directory loaded", "users", users, "groups", groups)

	mailer := email.NewSender(cfg.Signals.MailFrom, nil, logger)

	// Services (Core)
	factory := services.NewSignalFactory()
	preferenceService := services.NewPreferenceService(preferenceRepo, domain.PreferenceSettings{})
	signalService := services.NewSignalService(
		factory,
		preferenceService,
		signalRepo,
		mailQueue,
		caseRegistry,
		dispatcher,
		services.SignalServiceConfig{
			Queue: services.QueueConfig{
				Delay:     cfg.Dispatch.Delay,
				QueueSize: cfg.Dispatch.QueueSize,
				Workers:   cfg.Dispatch.Workers,
			},
			// A trigger makes up to three registry calls.
			Timeout: 3 * cfg.Registry.Timeout,
		},
		logger,
	)
	notificationService := services.NewNotificationService(routing.NewRouter(), dispatcher, signalService, logger)
	batchJob := services.NewBatchSignalJob(mailQueue, ledgerRepo, factory, preferenceService, contacts, mailer, txManager, logger)
	sweeper := services.NewRetentionSweeper(ledgerRepo, signalRepo, logger)

	// Handlers (Primary Adapters)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:                 logger,
		TokenManager:           tokenManager,
		NotificationSecretHash: cfg.Notifications.SecretHash,
		CORSAllowedOrigins:     cfg.Server.CORSAllowedOrigins,
		WebhookRateLimiter:     webhookRateLimiter,
		APIRateLimiter:         apiRateLimiter,

		Health:        httpAdapter.NewHealthHandler(pool, hub, mailQueue, cfg.App.Version),
		Notifications: httpAdapter.NewNotificationHandler(notificationService, errorHandler, logger),
		Admin: httpAdapter.NewAdminHandler(
			batchJob,
			sweeper,
			signalService,
			preferenceService,
			httpAdapter.AdminDefaults{
				BatchSize:     cfg.Signals.BatchSize,
				RetentionDays: cfg.Signals.RetentionDays,
			},
			errorHandler,
			logger,
		),
		Signals:   httpAdapter.NewSignalHandler(signalService, errorHandler, logger),
		WebSocket: httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger),
	})

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Signal workers may still dispatch, so they drain before the dispatcher.
	drained := make(chan struct{})
	go func() {
		signalService.Shutdown()
		dispatcher.Shutdown()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logger.Warn("background workers did not drain in time")
	}

	for _, rl := range []*mw.RateLimiter{webhookRateLimiter, apiRateLimiter} {
		if rl != nil {
			rl.Stop()
		}
	}

	logger.Info("server shutdown complete")
}
