package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/emotion-market/point-ledger/internal/config"
	"github.com/emotion-market/point-ledger/internal/data/mongo"
	"github.com/emotion-market/point-ledger/internal/logger"
	"github.com/emotion-market/point-ledger/internal/platform/auth"
	"github.com/emotion-market/point-ledger/internal/platform/persistence"
	"github.com/emotion-market/point-ledger/internal/point_engine/components"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// connect builds the environment from configuration. The audit projection is
// optional: when MongoDB is unreachable verify reports the ledger side only.
func connect(ctx context.Context, configName string, withStorage bool) (*environment, error) {
	cfg, err := config.LoadConfig(configName)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLoggerTo(cfg, os.Stderr)
	clock := clockwork.NewRealClock()

	env := &environment{
		clock:     clock,
		authority: auth.NewAuthority(cfg.Auth.JWTSecret, cfg.Auth.Issuer, clock.Now),
		close:     func() {},
	}
	if !withStorage {
		return env, nil
	}

	if cfg.Storage.Driver != config.StorageDriverPostgres {
		return nil, fmt.Errorf("pointctl requires STORAGE_DRIVER=%s, got %q", config.StorageDriverPostgres, cfg.Storage.Driver)
	}

	loc, err := cfg.Market.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid quota time zone: %w", err)
	}

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	repos := components.PostgresRepositories(log, postgresDB)
	env.services = components.CreateServices(postgresDB, repos, loc, clock, log)

	mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
	if err != nil {
		log.Warn("Audit projection unavailable", "error", err)
		env.close = postgresDB.Close
		return env, nil
	}
	env.audit = mongo.NewAuditRepository(log, mongoDB.Database())
	env.close = func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoDB.Timeout)
		defer cancel()
		if err := mongoDB.Close(closeCtx); err != nil {
			log.Error("Failed to close MongoDB", "error", err)
		}
		postgresDB.Close()
	}

	return env, nil
}
