package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shopin/storefront-bff/api/routes"
	"github.com/shopin/storefront-bff/internal/cart"
	"github.com/shopin/storefront-bff/internal/checkout"
	"github.com/shopin/storefront-bff/internal/shopapi"
	"github.com/shopin/storefront-bff/pkg/config"
	"github.com/shopin/storefront-bff/pkg/logger"
	"github.com/shopin/storefront-bff/pkg/metrics"
	"github.com/shopin/storefront-bff/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	// Local development loads .env; in deployed environments the variables
	// come from the runtime.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "storefront-bff",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "redis.connect.failed", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	snapshots, err := cart.NewRedisSnapshotStore(redisClient, cfg.Cart.SnapshotTTL)
	if err != nil {
		logg.Error(ctx, "cart.snapshot_store.failed", err)
		os.Exit(1)
	}

	apiClient, err := shopapi.NewClient(cfg.Upstream, logg)
	if err != nil {
		logg.Error(ctx, "upstream.client.failed", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewCartSyncMetrics(registry)

	cartSvc, err := cart.NewService(cart.ServiceParams{
		API:              apiClient,
		Snapshots:        snapshots,
		DebounceInterval: cfg.Cart.DebounceInterval,
		SessionIdle:      cfg.Cart.SessionIdle,
		Logger:           logg,
		Metrics:          syncMetrics,
	})
	if err != nil {
		logg.Error(ctx, "cart.service.failed", err)
		os.Exit(1)
	}
	go cartSvc.Run(ctx)

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		API:     apiClient,
		Cart:    cartSvc,
		Logger:  logg,
		Metrics: syncMetrics,
	})
	if err != nil {
		logg.Error(ctx, "checkout.service.failed", err)
		os.Exit(1)
	}

	router := routes.New(routes.Deps{
		Config:   cfg,
		Logger:   logg,
		Redis:    redisClient,
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Registry: registry,
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lctx := logg.WithField(ctx, "port", cfg.App.Port)
		logg.Info(lctx, "server.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server.failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	logg.Info(context.Background(), "server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "server.shutdown.failed", err)
	}

	// Push any unsynced cart edits upstream before the process exits.
	cartSvc.Shutdown(shutdownCtx)

	logg.Info(context.Background(), "server.stopped")
}
