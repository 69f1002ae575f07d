// Package main runs the token wizard backend:
// - HTTP API hosting wizard sessions, with WebSocket snapshot push
// - deployment records in PostgreSQL, wizard events in ClickHouse (or memory)
// - Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"token-deploy-wizard/internal/app"
	"token-deploy-wizard/internal/config"
	"token-deploy-wizard/internal/observability"
	"token-deploy-wizard/internal/server"
)

func main() {
	// Load .env file if exists
	config.LoadEnvFile(".env")

	def := config.Default()

	// Parse flags (env vars as defaults)
	addr := flag.String("addr", config.EnvOr("WIZARD_ADDR", def.Addr), "HTTP API listen address")
	metricsAddr := flag.String("metrics-addr", os.Getenv("WIZARD_METRICS_ADDR"), "Separate Prometheus metrics address (optional)")
	network := flag.String("network", config.EnvOr("WIZARD_NETWORK", def.Network), "Target network (stellar, solana)")
	deployEndpoint := flag.String("deploy-endpoint", os.Getenv("DEPLOY_SERVICE_ENDPOINT"), "Deploy service JSON-RPC endpoint")
	deployTimeout := flag.Duration("deploy-timeout", def.DeployTimeout, "Deploy service request timeout")
	deployRetries := flag.Int("deploy-retries", envInt("DEPLOY_SERVICE_RETRIES", def.DeployRetries), "Deploy service transport retries")
	dryRun := flag.Bool("dry-run", false, "Simulate deployments with the stub deployer")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", envInt("POSTGRES_MAX_CONNS", int(def.PostgresMaxConns)), "PostgreSQL pool size")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	storeTimeout := flag.Duration("store-timeout", def.StoreTimeout, "Deadline for connecting to and migrating the stores")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	baseFee := flag.String("base-fee", config.EnvOr("WIZARD_BASE_FEE", def.Fees.Base), "Base deployment fee")
	metadataFee := flag.String("metadata-fee", config.EnvOr("WIZARD_METADATA_FEE", def.Fees.Metadata), "Metadata surcharge")
	feeUnit := flag.String("fee-unit", config.EnvOr("WIZARD_FEE_UNIT", def.Fees.Unit), "Fee currency label")
	verbose := flag.Bool("verbose", false, "Verbose component logging")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Config{
		Addr:             *addr,
		MetricsAddr:      *metricsAddr,
		Network:          *network,
		DeployEndpoint:   *deployEndpoint,
		DeployTimeout:    *deployTimeout,
		DeployRetries:    *deployRetries,
		DryRun:           *dryRun,
		PostgresDSN:      *postgresDSN,
		PostgresMaxConns: int32(*postgresMaxConns),
		ClickhouseDSN:    *clickhouseDSN,
		StoreTimeout:     *storeTimeout,
		UseMemory:        *useMemory,
		Fees: config.FeesConfig{
			Base:     *baseFee,
			Metadata: *metadataFee,
			Unit:     *feeUnit,
		},
		Verbose: *verbose,
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	components, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize: %v", err)
	}
	defer cleanup()

	logger.Printf("Network: %s, fees: %s + %s %s", components.Network, cfg.Fees.Base, cfg.Fees.Metadata, cfg.Fees.Unit)

	srv := server.New(server.Options{
		Engine:          components.Engine,
		Calculator:      components.Calculator,
		Deployer:        components.Deployer,
		Network:         components.Network,
		DeploymentStore: components.Stores.Deployments,
		EventStore:      components.Stores.Events,
		Logger:          logger,
		Verbose:         cfg.Verbose,
	})

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, srv, logger)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// run serves the API until ctx is cancelled, then drains outstanding deploys.
func run(ctx context.Context, cfg config.Config, srv *server.Server, logger *log.Logger) error {
	errCh := make(chan error, 2)

	api := &http.Server{Addr: cfg.Addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Printf("Starting HTTP API on %s", cfg.Addr)
		if err := api.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var metrics *http.Server
	if cfg.MetricsAddr != "" && cfg.MetricsAddr != cfg.Addr {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		mux.Handle("/metrics", observability.Handler())
		metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Printf("API shutdown: %v", err)
	}
	if metrics != nil {
		metrics.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Waiting for deployments: %v", err)
	}
	return runErr
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
