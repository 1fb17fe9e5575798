package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vkuksa/product-catalog/internal/config"
	"github.com/vkuksa/product-catalog/internal/delivery/events"
	"github.com/vkuksa/product-catalog/internal/pkg/logger"
)

// The notifier tails image update events for auditing. It is a plain NATS
// subscriber, deliberately outside the durable consumer group: missing an
// event here has no effect on the catalog state.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting notifier service...")

	consumer, err := events.NewConsumer(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS consumer", err)
	}
	defer consumer.Close()

	if err := consumer.Subscribe(events.StreamSubjects, events.LoggingHandler(appLogger)); err != nil {
		appLogger.Fatal("Failed to subscribe to image update events", err)
	}

	appLogger.Info("Notifier service started and listening for events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down notifier service...")
}
