package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"emergency-service/internal/api"
	"emergency-service/internal/config"
	"emergency-service/internal/db"
	"emergency-service/internal/directory"
	"emergency-service/internal/dispatch"
	"emergency-service/internal/emergency"
	"emergency-service/internal/events"
	"emergency-service/internal/kafka"
	"emergency-service/internal/logging"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if err := dbConn.Migrate(context.Background()); err != nil {
		logger.Errorf("Schema migration failed: %v", err)
		log.Fatalf("Schema migration failed: %v", err)
	}

	// Wire the emergency service
	hub := events.NewHub(cfg.Outbox.QueueSize, logger)
	defer hub.Close()

	dispatcher := dispatch.New(cfg, logger, dbConn)
	dir := directory.New(dbConn, logger)
	svc := emergency.New(dbConn, dir, dispatcher, hub, logger, cfg)

	// Outbox retry workers
	var wg sync.WaitGroup
	outboxWorker := dispatch.NewOutboxWorker(dispatcher, dbConn)
	outboxWorker.Start(&wg)

	// Device SOS ingestion (optional)
	ctx, cancel := context.WithCancel(context.Background())
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg, svc)
		consumer.Start(ctx, &wg)
	}

	// Start API server
	handler := api.NewHandler(svc, hub, logger)
	router := api.NewRouter(logger, cfg, handler)
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	cancel()
	outboxWorker.Stop()
	if consumer != nil {
		consumer.Close()
	}
	wg.Wait()
	logger.Infof("Service stopped")
}
