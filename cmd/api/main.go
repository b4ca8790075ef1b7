// cmd/api/main.go
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

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/app"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/config"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/postgres"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/infrastructure/database/redis"
	httpserver "github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/interfaces/http/handlers"
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	appLogger.WithFields(logrus.Fields{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting API server")

	// Connect to database
	db, err := postgres.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.Health(ctx); err != nil {
		appLogger.WithError(err).Fatal("Database health check failed")
	}
	if err := redisClient.Health(ctx); err != nil {
		appLogger.WithError(err).Fatal("Redis health check failed")
	}
	cancel()

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), appLogger)
	if err := migration.RunAutoMigrations(); err != nil {
		appLogger.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		appLogger.WithError(err).Warn("Index creation failed")
	}

	container, err := app.New(cfg, db.GetDB(), redisClient.GetClient(), appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build services")
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), time.Minute)
	err = migration.SeedInitialData(seedCtx, postgres.SeedOptions{
		Menu:          container.Catalog,
		Admins:        container.Users,
		AdminEmail:    cfg.Security.AdminEmail,
		AdminPassword: cfg.Security.AdminPassword,
	})
	cancelSeed()
	if err != nil {
		appLogger.WithError(err).Warn("Data seeding failed")
	}

	checks := map[string]handlers.HealthChecker{
		"database": handlers.HealthFunc(db.Health),
		"redis":    handlers.HealthFunc(redisClient.Health),
	}
	server, err := httpserver.NewServer(cfg, container.Handlers(checks), container.Tokens, redisClient.GetClient(), appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create HTTP server")
	}

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down gracefully")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}
	// Let queued order notifications finish before the connections close
	if err := container.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to stop cache")
	}

	appLogger.Info("Server shutdown completed")
}
