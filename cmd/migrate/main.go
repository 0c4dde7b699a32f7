package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bago-furniture/bago-inventory/internal/activity"
	"github.com/bago-furniture/bago-inventory/internal/app"
	"github.com/bago-furniture/bago-inventory/internal/platform/db"
	"github.com/bago-furniture/bago-inventory/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping migrations")
		return
	}

	status := flag.Bool("status", false, "print migration status and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "migrate"))

	if err := run(ctx, cfg, logger, *status); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, statusOnly bool) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	if statusOnly {
		return db.MigrationStatus(ctx, pool)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("migrations applied")

	if cfg.AdminUsername == "" {
		return nil
	}
	recorder := activity.NewRecorder(activity.NewRepository(pool), nil, nil, logger)
	svc := users.NewService(users.NewRepository(pool), recorder)
	admin, created, err := svc.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminFullName, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		logger.Info("admin account created", slog.String("username", admin.Username), slog.Int64("user_id", admin.ID))
	} else {
		logger.Info("admin account already present, seed skipped")
	}
	return nil
}
