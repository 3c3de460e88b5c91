package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "promo-ops/internal/adapter/http"
	"promo-ops/internal/adapter/postgres"
	"promo-ops/internal/adapter/usecase"
	"promo-ops/internal/config"
	"promo-ops/internal/db"
	"promo-ops/internal/scheduler"
)

// main is the entry point of the allocation engine. It loads configuration,
// optionally runs database migrations, initializes the database pool,
// repositories and use cases, starts the periodic reconcile/settle jobs and
// the HTTP server. On receiving a termination signal it gracefully shuts
// everything down.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		// Initialise structured logger based on configuration.
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	// Optionally run migrations if configured. We use the Psql sub‑config.
	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
		} else {
			logger.Info("migrations applied successfully")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Psql.SeedDemoData {
		if err = db.Seed(ctx, pool); err != nil {
			logger.Error("seed error", slog.Any("error", err))
		} else {
			logger.Info("demo data seeded")
		}
	}

	campaigns := postgres.NewCampaignRepository(pool)
	vendors := postgres.NewVendorRepository(pool)
	allocs := postgres.NewAllocationRepository(pool)
	deliveries := postgres.NewDeliveryRepository(pool)
	reports := postgres.NewReportRepository(pool)
	payments := postgres.NewPaymentRepository(pool)
	alerts := postgres.NewAlertRepository(pool)
	signals := postgres.NewSignalRepository(pool)
	stats := postgres.NewStatsRepository(pool)

	planner := usecase.NewPlanner(campaigns, vendors, allocs)
	reconciler := usecase.NewReconciler(campaigns, allocs, deliveries, reports, cfg.Sched.ReconcileInterval)
	ledger := usecase.NewLedger(vendors, allocs, deliveries, payments, cfg.Policy.PaymentPolicy())
	scorer := usecase.NewScorer(campaigns, reports, payments, signals, alerts, cfg.Policy.PaymentTerms())

	jobs := scheduler.New(campaigns, allocs, reconciler, ledger, scorer, cfg.Sched, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	handler := httpadapter.NewHandler(httpadapter.Deps{
		Planner:  planner,
		Ledger:   ledger,
		Scorer:   scorer,
		Allocs:   allocs,
		Delivery: deliveries,
		Signals:  signals,
		Payments: payments,
		Stats:    stats,
	}, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
