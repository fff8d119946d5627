package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/request-queue/internal/api"
	"github.com/notifyhub/request-queue/internal/config"
	"github.com/notifyhub/request-queue/internal/db"
	"github.com/notifyhub/request-queue/internal/metrics"
	"github.com/notifyhub/request-queue/internal/provider"
	"github.com/notifyhub/request-queue/internal/queue"
	"github.com/notifyhub/request-queue/internal/ratelimiter"
	"github.com/notifyhub/request-queue/internal/repository"
	"github.com/notifyhub/request-queue/internal/service"
	"github.com/notifyhub/request-queue/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- persistence substrate ----
	ctx := context.Background()
	repo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	lazy := queue.NewLazy(func() (*queue.Queue, error) {
		return queue.Open(ctx, repo, queue.Config{
			Key:                cfg.QueueKey,
			Capacity:           cfg.QueueCapacity,
			PersistTimeout:     cfg.PersistTimeout,
			PersistMinInterval: cfg.PersistMinInterval,
		}, logger, m.QueueHooks())
	})
	q, err := lazy.Get()
	if err != nil {
		logger.Fatal("failed to open request queue", zap.Error(err))
	}

	prov := provider.NewWebhookProvider(cfg.ProviderBaseURL, cfg.ProviderTimeout)
	limiter := ratelimiter.New(cfg.RateLimit)

	// ---- background workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onSent, onFailed := m.WorkerHooks()
	dispatcher := worker.NewDispatcher(q, prov, limiter, cfg.DispatchInterval, cfg.RetryBackoff, logger, worker.MetricHooks{
		OnSent:   onSent,
		OnFailed: onFailed,
	})
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(workerCtx)
	}()

	checkpointW := worker.NewCheckpointWorker(q, cfg.CheckpointInterval, logger)
	go checkpointW.Run(workerCtx)

	svc := service.NewRequestService(q, repo, dispatcher.InFlight, logger)

	// ---- HTTP server ----
	router := api.NewRouter(svc, reg, logger)
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

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop dispatching and wait for the in-flight send to settle.
	cancelWorkers()
	select {
	case <-dispatchDone:
	case <-shutdownCtx.Done():
	}

	// 3. Commit the final queue snapshot.
	if err := q.Close(shutdownCtx); err != nil {
		logger.Error("final queue snapshot not persisted", zap.Error(err))
	}

	logger.Info("server stopped cleanly")
}

// openStore builds the blob repository for the configured backend. The
// returned func releases the underlying connection.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.BlobRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(db.DefaultMigrations, cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database migrations applied")
		return repository.NewPgBlobRepository(pool), pool.Close, nil

	case config.BackendSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.SQLitePath))
		return repository.NewSQLiteBlobRepository(sqlDB), func() { _ = sqlDB.Close() }, nil

	case config.BackendMemory:
		logger.Warn("in-memory store selected, queue will not survive restarts")
		return repository.NewMockBlobRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
