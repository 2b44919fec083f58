package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/clinicq/patient-queue/internal/api"
	"github.com/clinicq/patient-queue/internal/config"
	"github.com/clinicq/patient-queue/internal/db"
	"github.com/clinicq/patient-queue/internal/dispatch"
	"github.com/clinicq/patient-queue/internal/event"
	"github.com/clinicq/patient-queue/internal/metrics"
	"github.com/clinicq/patient-queue/internal/notify"
	"github.com/clinicq/patient-queue/internal/ratelimiter"
	"github.com/clinicq/patient-queue/internal/repository"
	"github.com/clinicq/patient-queue/internal/service"
	"github.com/clinicq/patient-queue/internal/worker"
	"github.com/clinicq/patient-queue/internal/ws"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	queueRepo := repository.NewPgQueueRepository(pool)
	sessionRepo := repository.NewPgSessionRepository(pool)
	attemptRepo := repository.NewPgAttemptRepository(pool)

	bus := event.NewBus(logger)
	queueSvc := service.NewQueueService(queueRepo, bus, cfg.ServiceTimeMinutes, logger)
	authSvc := service.NewAuthService(sessionRepo, cfg.SessionTTL, logger)

	hub := ws.NewHub(logger, m.HubHooks())
	wsHandler := ws.NewHandler(hub, ws.NewAuthenticator(authSvc), logger)

	// ---- event consumers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	dispatcher := dispatch.New(
		bus.Subscribe("dispatcher", 256),
		hub,
		cfg.GetReadyThreshold,
		logger,
	)
	go dispatcher.Run(workerCtx)

	intents := notify.NewIntentQueue()
	notifier := notify.NewNotifier(
		bus.Subscribe("notifier", 256),
		intents,
		cfg.GetReadyThreshold,
		logger,
	)
	go notifier.Run(workerCtx)

	// ---- notification delivery ----
	provider := notify.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	limiter := ratelimiter.New(cfg.SMSRateLimit)
	backoff := notify.BackoffPolicy{
		Base:       cfg.BackoffBase,
		Multiplier: 2,
		Max:        cfg.BackoffMax,
		JitterFrac: 0.2,
	}
	deliveryPool := notify.NewPool(
		cfg.NotifyWorkers, intents, provider, limiter, attemptRepo,
		cfg.NotifyMaxRetries, backoff, logger, m.WorkerHooks(),
	)
	deliveryPool.Start(workerCtx)

	refreshW := worker.NewRefreshWorker(queueSvc, cfg.QueueRefreshInterval, logger)
	go refreshW.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(queueSvc, authSvc, attemptRepo, intents, hub, wsHandler, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests and websocket handshakes.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal dispatchers and delivery workers to stop.
	cancelWorkers()

	// 3. Wait for in-flight deliveries to finish their current message.
	deliveryPool.Wait()

	logger.Info("server stopped cleanly")
}
