package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/scanningworld/scanningworld-backend/api/routes"
	"github.com/scanningworld/scanningworld-backend/internal/auth"
	"github.com/scanningworld/scanningworld-backend/internal/places"
	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/internal/scan"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	"github.com/scanningworld/scanningworld-backend/pkg/config"
	"github.com/scanningworld/scanningworld-backend/pkg/db"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/metrics"
	"github.com/scanningworld/scanningworld-backend/pkg/migrate"
	"github.com/scanningworld/scanningworld-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	scanMetrics := metrics.NewScanMetrics(registry)
	reconcileMetrics := metrics.NewReconcileMetrics(registry)

	userRepo := users.NewRepository(dbClient.DB())
	regionRepo := regions.NewRepository(dbClient.DB())
	placeRepo := places.NewRepository(dbClient.DB())
	scanRepo := scan.NewRepository(dbClient.DB())

	regionsSvc, err := regions.NewService(regions.ServiceParams{
		RegionRepo: regionRepo,
		Logger:     logg,
		Metrics:    reconcileMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create regions service", err)
		os.Exit(1)
	}

	placesSvc, err := places.NewService(places.ServiceParams{
		PlaceRepo:  placeRepo,
		RegionRepo: regionRepo,
		Tx:         dbClient,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create places service", err)
		os.Exit(1)
	}

	scanSvc, err := scan.NewService(scan.ServiceParams{
		PlaceRepo: placeRepo,
		UserRepo:  userRepo,
		ScanRepo:  scanRepo,
		Tx:        dbClient,
		Lock:      redisClient,
		Logger:    logg,
		Metrics:   scanMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scan service", err)
		os.Exit(1)
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		RegionRepo:     regionRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Mail:           auth.NewLogMailSender(logg),
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Registry:    registry,
			AuthService: authSvc,
			RegionsSvc:  regionsSvc,
			PlacesSvc:   placesSvc,
			ScanSvc:     scanSvc,
			UserRepo:    userRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
