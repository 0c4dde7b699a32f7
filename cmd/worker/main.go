package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/app"
	jobmetrics "github.com/bago-furniture/bago-inventory/internal/jobs"
	"github.com/bago-furniture/bago-inventory/internal/observability"
	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	// Retries write straight to the database; a failure is returned to asynq instead of re-queued.
	recorder := activity.NewRecorder(activity.NewRepository(pool), nil, metrics, logger)
	qrService := qrcode.NewService(qrcode.NewRepository(pool), recorder, metrics, qrcode.Config{
		Prefix:   cfg.QRPrefix,
		MaxBatch: cfg.QRMaxBatch,
	})

	retryJob := jobs.NewActivityRetryJob(recorder, logger, jobMetrics)
	integrityJob := jobs.NewQRIntegrityJob(qrService, logger, jobMetrics)

	integrityTask, err := jobs.NewQRIntegrityScanTask(cfg.IntegrityScanLimit)
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.IntegrityScanCron != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.IntegrityScanCron, Task: integrityTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskActivityRecord, Handler: retryJob.Handle},
			{Type: jobs.TaskQRIntegrityScan, Handler: integrityJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
