package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vkuksa/product-catalog/internal/clients/inventory"
	"github.com/vkuksa/product-catalog/internal/config"
	"github.com/vkuksa/product-catalog/internal/delivery/events"
	httpDelivery "github.com/vkuksa/product-catalog/internal/delivery/http"
	"github.com/vkuksa/product-catalog/internal/delivery/http/handler"
	"github.com/vkuksa/product-catalog/internal/pkg/cache"
	"github.com/vkuksa/product-catalog/internal/pkg/database"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
	"github.com/vkuksa/product-catalog/internal/pkg/objectstore"
	cacheRepo "github.com/vkuksa/product-catalog/internal/repository/cache"
	"github.com/vkuksa/product-catalog/internal/repository/postgres"
	"github.com/vkuksa/product-catalog/internal/usecase/catalog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Product Catalog API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to object storage...")
	store, err := objectstore.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create object storage client", err)
	}

	// Bucket provisioning failure is fatal: image uploads cannot work without it
	provisionCtx, cancelProvision := context.WithTimeout(context.Background(), 30*time.Second)
	if err := store.EnsureBucket(provisionCtx); err != nil {
		cancelProvision()
		appLogger.Fatal("Failed to provision bucket", err)
	}
	cancelProvision()

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	// The stream must exist before the first publish so no event is lost
	// while the image worker is down
	streamConfig := events.NewStreamConfig(publisher.JetStream(), appLogger)
	if err := streamConfig.EnsureStream(); err != nil {
		appLogger.Fatal("Failed to ensure stream", err)
	}

	productStore := postgres.NewProductStore(db)
	productCache := cacheRepo.NewProductCache(redisClient, cfg.Cache.ProductTTL)
	inventoryClient := inventory.NewClient(cfg)

	catalogService := catalog.NewService(
		productStore,
		store,
		inventoryClient,
		publisher,
		productCache,
		appLogger,
	)

	productHandler := handler.NewProductHandler(catalogService, appLogger)

	router := httpDelivery.NewRouter(productHandler, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
