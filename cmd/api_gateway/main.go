package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/emotion-market/point-ledger/internal/api_gateway"
	"github.com/emotion-market/point-ledger/internal/config"
	"github.com/emotion-market/point-ledger/internal/data/memory"
	"github.com/emotion-market/point-ledger/internal/logger"
	"github.com/emotion-market/point-ledger/internal/platform/auth"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/emotion-market/point-ledger/internal/point_engine/components"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	clock := clockwork.NewRealClock()

	loc, err := cfg.Market.Location()
	if err != nil {
		log.Error("Invalid quota time zone", "error", err)
		os.Exit(1)
	}

	var (
		txRunner  persistence.TxRunner
		repos     components.Repositories
		readiness api_gateway.Pinger
		closeDB   = func() {}
	)

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		store.SeedCatalog(memory.DefaultCatalog(clock.Now()))
		txRunner = store
		repos = components.MemoryRepositories(store)
		log.Warn("Using in-memory storage, balances are lost on restart")
	default:
		postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		txRunner = postgresDB
		repos = components.PostgresRepositories(log, postgresDB)
		readiness = postgresDB
		closeDB = postgresDB.Close
	}

	services := components.CreateServices(txRunner, repos, loc, clock, log)
	authority := auth.NewAuthority(cfg.Auth.JWTSecret, cfg.Auth.Issuer, clock.Now)

	server := api_gateway.NewServer(log, cfg, services, authority, readiness, clock)
	log.Info("REST server initialized",
		"storage_driver", cfg.Storage.Driver,
		"quota_timezone", loc.String(),
	)

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")
	started := clock.Now()

	// In-flight requests may still hold pool connections, so the pool closes last.
	stopErr := server.Stop(shutdownCtx)
	if stopErr != nil {
		log.Error("Error during server shutdown", "error", stopErr)
	}
	closeDB()

	if serverErr != nil || stopErr != nil {
		log.Error("Server shutdown completed with errors", "took", clock.Since(started).Round(time.Millisecond))
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully", "took", clock.Since(started).Round(time.Millisecond))
}
