package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rahulmehra/storefront-backend/api/routes"
	"github.com/rahulmehra/storefront-backend/internal/cart"
	"github.com/rahulmehra/storefront-backend/internal/gateway"
	"github.com/rahulmehra/storefront-backend/internal/journal"
	"github.com/rahulmehra/storefront-backend/internal/orders"
	"github.com/rahulmehra/storefront-backend/internal/session"
	"github.com/rahulmehra/storefront-backend/internal/shipping"
	"github.com/rahulmehra/storefront-backend/pkg/config"
	"github.com/rahulmehra/storefront-backend/pkg/db"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/metrics"
	"github.com/rahulmehra/storefront-backend/pkg/migrate"
	"github.com/rahulmehra/storefront-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cartClient, err := cart.NewClient(cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart client", err)
		os.Exit(1)
	}

	gatewayClient, err := gateway.NewClient(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	orderClient, err := orders.NewClient(cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create order client", err)
		os.Exit(1)
	}

	attemptRepo, err := journal.NewRepository(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create journal repository", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	sessions, err := session.NewManager(session.Deps{
		CartPersister: cartClient,
		CartLoader:    cartClient,
		Gateway:       gatewayClient,
		Orders:        orderClient,
		Journal:       attemptRepo,
		Metrics:       checkoutMetrics,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	shippingValidator, err := shipping.NewValidator()
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping validator", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:           cfg,
			Logger:           logg,
			DBPinger:         dbClient,
			RedisClient:      redisClient,
			Sessions:         sessions,
			ShippingV:        shippingValidator,
			Orders:           orderClient,
			MetricsGatherer:  registry,
			IdempotencyStore: redisClient,
			CriticalTTL:      cfg.Idempotency.CheckoutTTL,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
