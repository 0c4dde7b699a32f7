package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/app"
	"github.com/bago-furniture/bago-inventory/internal/auth"
	"github.com/bago-furniture/bago-inventory/internal/labels"
	"github.com/bago-furniture/bago-inventory/internal/observability"
	"github.com/bago-furniture/bago-inventory/internal/platform/cache"
	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/platform/telemetry"
	"github.com/bago-furniture/bago-inventory/internal/products"
	"github.com/bago-furniture/bago-inventory/internal/qrcode"
	"github.com/bago-furniture/bago-inventory/internal/rbac"
	"github.com/bago-furniture/bago-inventory/internal/reports"
	"github.com/bago-furniture/bago-inventory/internal/scan"
	"github.com/bago-furniture/bago-inventory/internal/shared"
	"github.com/bago-furniture/bago-inventory/internal/templates"
	"github.com/bago-furniture/bago-inventory/internal/users"
	"github.com/bago-furniture/bago-inventory/jobs"
)

const sessionCookieName = "bago_session"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  cfg.OTelServiceName,
		CollectorURL: cfg.OTelCollectorURL,
		Environment:  cfg.AppEnv,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Warn("tracer shutdown", slog.Any("error", err))
		}
	}()

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, sessionCookieName, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	activityRepo := activity.NewRepository(pool)
	recorder := activity.NewRecorder(activityRepo, jobClient, metrics, logger)
	activityService := activity.NewService(activityRepo)

	usersRepo := users.NewRepository(pool)
	rbacService := rbac.NewService(usersRepo)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool))
	usersService := users.NewService(usersRepo, recorder)

	templatesService := templates.NewService(templates.NewRepository(pool), recorder)
	qrService := qrcode.NewService(qrcode.NewRepository(pool), recorder, metrics, qrcode.Config{
		Prefix:   cfg.QRPrefix,
		MaxBatch: cfg.QRMaxBatch,
	})
	productsService := products.NewService(products.NewRepository(pool), qrService, templatesService, recorder, metrics, logger, products.Config{
		LowStockThreshold: cfg.LowStockThreshold,
		MaxIntake:         cfg.QRMaxBatch,
	})
	scanService := scan.NewService(qrService, productsService, recorder, metrics, logger)
	renderer := labels.NewRenderer(labels.NewQREncoder(), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBACMiddleware: rbacMiddleware,
		Metrics:        metrics,
		Ready:          readiness(pool, redisClient),

		AuthHandler:        auth.NewHandler(logger, authService, sessionManager, csrfManager, rbacService, recorder),
		ScanHandler:        scan.NewHandler(logger, scanService, rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, productsService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, productsService, rbacMiddleware),
		QRHandler:          qrcode.NewHandler(logger, qrService, renderer, rbacMiddleware),
		TemplatesHandler:   templates.NewHandler(logger, templatesService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		ActivityHandler:    activity.NewHandler(logger, activityService),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger, rbacMiddleware),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("qr_prefix", qrService.Prefix()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func readiness(pool *pgxpool.Pool, client *redis.Client) func(r *http.Request) error {
	return func(r *http.Request) error {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}
}
