// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/domain/cart"
	"github.com/xcybeamer/storefront-backend/internal/domain/checkout"
	"github.com/xcybeamer/storefront-backend/internal/domain/pricing"
	"github.com/xcybeamer/storefront-backend/internal/infrastructure/beamer"
	"github.com/xcybeamer/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/xcybeamer/storefront-backend/internal/infrastructure/database/redis"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http"
	"github.com/xcybeamer/storefront-backend/internal/interfaces/http/routes"
	"github.com/xcybeamer/storefront-backend/internal/pkg/logger"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting storefront backend")

	// Connect to database
	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Collaborators and services
	beamerClient := beamer.NewClient(cfg.Collaborators, m, log)
	carts := cart.NewService(db.GetDB(), redisClient.GetClient(), cfg, log)
	promos := pricing.NewService(pricing.NewPromoStore(redisClient.GetClient(), cfg.Cart.SessionTTL), beamerClient, log)
	attempts := checkout.NewGormAttemptRepository(db.GetDB())
	checkoutService := checkout.NewService(checkout.Dependencies{
		Carts:     carts,
		Promos:    promos,
		Inventory: beamerClient,
		Gateway:   beamerClient,
		Attempts:  attempts,
		Metrics:   m,
		Log:       log,
		Timeout:   cfg.Cart.CheckoutTimeout,
	})

	server, err := http.NewServer(cfg, routes.Dependencies{
		Config:   cfg,
		Redis:    redisClient.GetClient(),
		Catalog:  beamerClient,
		Carts:    carts,
		Promos:   promos,
		Checkout: checkoutService,
		Attempts: attempts,
		Metrics:  m,
		Log:      log,
	}, map[string]http.HealthChecker{
		"database": db,
		"redis":    redisClient,
	}, registry, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create HTTP server")
	}

	// Prune abandoned carts and failed attempts in the background
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go runCleanup(cleanupCtx, migration, cfg.Cart.Retention, log)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")
	stopCleanup()

	// Give server 30 seconds to shutdown gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	log.Info("Server shutdown completed")
}

// runCleanup prunes stale rows once at startup and then every six hours
func runCleanup(ctx context.Context, migration *postgres.Migration, retention time.Duration, log logrus.FieldLogger) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for {
		if err := migration.CleanupStaleData(time.Now().Add(-retention)); err != nil {
			log.WithError(err).Warn("Stale data cleanup failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
