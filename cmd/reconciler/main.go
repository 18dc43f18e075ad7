package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scanningworld/scanningworld-backend/internal/places"
	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/pkg/config"
	"github.com/scanningworld/scanningworld-backend/pkg/db"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/metrics"
)

const ratingJobName = "place-average-rating"

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	registry := prometheus.NewRegistry()
	reconcileMetrics := metrics.NewReconcileMetrics(registry)

	regionRepo := regions.NewRepository(dbClient.DB())
	placeRepo := places.NewRepository(dbClient.DB())

	regionsSvc, err := regions.NewService(regions.ServiceParams{
		RegionRepo: regionRepo,
		Logger:     logg,
		Metrics:    reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create regions service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := cfg.Reconciler.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": interval.String(),
	})
	logg.Info(logCtx, "starting reconciler")

	// One pass at startup, then on the interval.
	runOnce(ctx, logg, regionsSvc, placeRepo, reconcileMetrics)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logg.Info(logCtx, "reconciler shutting down")
			return
		case <-ticker.C:
			runOnce(ctx, logg, regionsSvc, placeRepo, reconcileMetrics)
		}
	}
}

func runOnce(ctx context.Context, logg *logger.Logger, regionsSvc regions.Service, placeRepo *places.Repository, m *metrics.ReconcileMetrics) {
	if _, err := regionsSvc.Reconcile(ctx); err != nil {
		logg.Error(ctx, "region counter reconcile failed", err)
	}

	start := time.Now()
	corrected, err := placeRepo.RecountAverageRatings(ctx)
	m.ObserveDuration(ratingJobName, time.Since(start))
	if err != nil {
		m.IncFailure(ratingJobName)
		logg.Error(ctx, "average rating reconcile failed", err)
		return
	}
	if corrected > 0 {
		m.AddDrift(ratingJobName, int(corrected))
		logg.Warn(logg.WithFields(ctx, map[string]any{"corrected": corrected}), "place average ratings drifted")
	}
}
