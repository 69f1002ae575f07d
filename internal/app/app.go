// Package app assembles the wizard components from a Config.
package app

import (
	"context"
	"fmt"
	"log"

	"token-deploy-wizard/internal/address"
	"token-deploy-wizard/internal/config"
	"token-deploy-wizard/internal/deploy"
	"token-deploy-wizard/internal/deploy/stub"
	"token-deploy-wizard/internal/deployservice"
	"token-deploy-wizard/internal/fees"
	"token-deploy-wizard/internal/storage"
	chstore "token-deploy-wizard/internal/storage/clickhouse"
	"token-deploy-wizard/internal/storage/memory"
	"token-deploy-wizard/internal/storage/migrations"
	pgstore "token-deploy-wizard/internal/storage/postgres"
	"token-deploy-wizard/internal/validation"
)

// Stores holds the storage implementations.
type Stores struct {
	Deployments storage.DeploymentStore
	Events      storage.WizardEventStore
}

// Components is everything a front end needs to host wizard sessions.
type Components struct {
	Engine     *validation.Engine
	Calculator *fees.Calculator
	Deployer   deploy.Deployer
	Stores     Stores
	Network    string
}

// Build creates the components described by cfg. The returned cleanup
// closes storage connections and must be called once.
func Build(ctx context.Context, cfg config.Config, logger *log.Logger) (*Components, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	validator, err := address.Lookup(cfg.Network)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, nil, err
	}

	calculator, err := fees.NewCalculator(schedule)
	if err != nil {
		return nil, nil, err
	}

	stores, cleanup, err := CreateStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return &Components{
		Engine:     validation.NewEngine(validator),
		Calculator: calculator,
		Deployer:   NewDeployer(cfg, logger),
		Stores:     stores,
		Network:    validator.Network(),
	}, cleanup, nil
}

// NewDeployer returns the stub deployer for dry runs and the deploy-service
// client otherwise.
func NewDeployer(cfg config.Config, logger *log.Logger) deploy.Deployer {
	if cfg.DryRun {
		if logger != nil {
			logger.Printf("Dry run: deployments are simulated")
		}
		return stub.NewDeployer()
	}
	return deployservice.NewClient(cfg.DeployEndpoint,
		deployservice.WithTimeout(cfg.DeployTimeout),
		deployservice.WithMaxRetries(cfg.DeployRetries),
	)
}

// CreateStores opens memory stores, or PostgreSQL and ClickHouse with
// migrations applied. Connecting and migrating share cfg.StoreTimeout.
func CreateStores(ctx context.Context, cfg config.Config) (Stores, func(), error) {
	if cfg.UseMemory {
		return Stores{
			Deployments: memory.NewDeploymentStore(),
			Events:      memory.NewWizardEventStore(),
		}, func() {}, nil
	}

	if cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
	}

	// PostgreSQL (deployment records)
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
		MaxConns:       cfg.PostgresMaxConns,
		ConnectTimeout: cfg.StoreTimeout,
	})
	if err != nil {
		return Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse (wizard event log)
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return Stores{}, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := Stores{
		Deployments: pgstore.NewDeploymentStore(pool),
		Events:      chstore.NewWizardEventStore(chConn),
	}
	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}
