package main

import (
	"context"
	"net/http"
	"os"

	"github.com/adityahutama/pasarsegar-backend/api/routes"
	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	"github.com/adityahutama/pasarsegar-backend/internal/cart/gormstore"
	"github.com/adityahutama/pasarsegar-backend/internal/cart/redisstore"
	checkoutsvc "github.com/adityahutama/pasarsegar-backend/internal/checkout"
	"github.com/adityahutama/pasarsegar-backend/internal/pricing"
	"github.com/adityahutama/pasarsegar-backend/pkg/clock"
	"github.com/adityahutama/pasarsegar-backend/pkg/config"
	"github.com/adityahutama/pasarsegar-backend/pkg/db"
	"github.com/adityahutama/pasarsegar-backend/pkg/instance"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
	"github.com/adityahutama/pasarsegar-backend/pkg/marketplace"
	"github.com/adityahutama/pasarsegar-backend/pkg/metrics"
	"github.com/adityahutama/pasarsegar-backend/pkg/migrate"
	"github.com/adityahutama/pasarsegar-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
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

	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:pasarsegar.db?cache=shared"
		}
	}

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
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	var cartStore cart.Store
	if cfg.FeatureFlags.CartStoreRedis {
		cartStore, err = redisstore.New(redisClient, cfg.Redis.GuestCartTTL)
	} else {
		cartStore, err = gormstore.New(dbClient.DB())
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	ledger, err := cart.NewLedger(cartStore, logg, checkoutMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart ledger", err)
		os.Exit(1)
	}

	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing engine", err)
		os.Exit(1)
	}

	marketplaceClient, err := marketplace.NewClient(
		cfg.Marketplace.BaseURL,
		cfg.Marketplace.Timeout,
		cfg.Marketplace.RetryMax,
		marketplace.WithAPIToken(cfg.Marketplace.APIToken),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace client", err)
		os.Exit(1)
	}

	clk := clock.NewRealClock()
	sequencer, err := checkoutsvc.NewSequencer(
		ledger,
		engine,
		marketplaceClient,
		marketplaceClient,
		marketplaceClient,
		cfg.Checkout,
		clk,
		logg,
		checkoutMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout sequencer", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ledger,
			engine,
			clk,
			sequencer,
			marketplaceClient,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
