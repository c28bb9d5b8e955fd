package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/emotion-market/point-ledger/internal/config"
	"github.com/emotion-market/point-ledger/internal/data/mongo"
	"github.com/emotion-market/point-ledger/internal/logger"
	"github.com/emotion-market/point-ledger/internal/platform/messaging/consumers"
	"github.com/emotion-market/point-ledger/internal/platform/messaging/producers"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/emotion-market/point-ledger/internal/point_engine/components"
	"github.com/emotion-market/point-ledger/internal/point_engine/consumer"
	"github.com/emotion-market/point-ledger/internal/point_engine/outbox_poller"
	"github.com/emotion-market/point-ledger/internal/point_engine/sweeper"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		fmt.Printf("The ledger worker requires STORAGE_DRIVER=%s\n", config.StorageDriverPostgres)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	clock := clockwork.NewRealClock()

	log.Info("Starting Ledger Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	loc, err := cfg.Market.Location()
	if err != nil {
		log.Error("Invalid quota time zone", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	if err := auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure audit indexes", "error", err)
		os.Exit(1)
	}

	repos := components.PostgresRepositories(log, postgresDB)
	services := components.CreateServices(postgresDB, repos, loc, clock, log)

	eventProducer, err := producers.NewLedgerEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// A typed nil would make the interface non-nil and defeat the handler's check.
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	eventHandler := consumer.NewLedgerEventHandler(log.With("component", "audit_projector"), auditRepo, deadLetters, clock)
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	poller, err := outbox_poller.NewPoller(
		&cfg.Outbox,
		cfg.WorkerPool.Size,
		repos.Outbox,
		outbox_poller.NewEventPublisher(repos.Outbox, eventProducer, log.With("component", "event_publisher")),
		clock,
		log.With("component", "outbox_poller"),
	)
	if err != nil {
		log.Error("Failed to initialize outbox poller", "error", err)
		os.Exit(1)
	}

	expirySweeper := sweeper.New(services.Purchases, clock, cfg.Sweeper.Interval, log.With("component", "expiry_sweeper"))

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	log.Info("Starting audit consumer",
		"topic", cfg.Kafka.LedgerEventTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, eventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-kafkaConsumer.Done()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		expirySweeper.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Waiting for workers to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All workers stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	var closeErr error
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		closeErr = err
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing ledger event producer", "error", err)
		closeErr = err
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			closeErr = err
		}
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		closeErr = err
	}

	if serviceErr != nil || closeErr != nil {
		log.Error("Ledger Worker shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Ledger Worker shutdown completed successfully")
}
