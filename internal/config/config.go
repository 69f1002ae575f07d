// Package config holds the runtime settings shared by the binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"token-deploy-wizard/internal/address"
	"token-deploy-wizard/internal/fees"
)

// Config is the full runtime configuration.
type Config struct {
	Addr        string `mapstructure:"addr"`         // API listen address
	MetricsAddr string `mapstructure:"metrics_addr"` // separate metrics listener, empty to serve /metrics on Addr only

	Network        string        `mapstructure:"network"`         // stellar, solana
	DeployEndpoint string        `mapstructure:"deploy_endpoint"` // deploy-service JSON-RPC endpoint
	DeployTimeout  time.Duration `mapstructure:"deploy_timeout"`
	DeployRetries  int           `mapstructure:"deploy_retries"`
	DryRun         bool          `mapstructure:"dry_run"`         // use the stub deployer

	PostgresDSN      string        `mapstructure:"postgres_dsn"`
	PostgresMaxConns int32         `mapstructure:"postgres_max_conns"`
	ClickhouseDSN    string        `mapstructure:"clickhouse_dsn"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`      // connect and migrate deadline
	UseMemory        bool          `mapstructure:"use_memory"`

	Fees FeesConfig `mapstructure:"fees"`

	Verbose bool `mapstructure:"verbose"`
}

// FeesConfig is the fee schedule as decimal strings.
type FeesConfig struct {
	Base     string `mapstructure:"base"`
	Metadata string `mapstructure:"metadata"`
	Unit     string `mapstructure:"unit"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Addr:             ":8080",
		Network:          address.NetworkStellar,
		DeployTimeout:    60 * time.Second,
		DeployRetries:    3,
		PostgresMaxConns: 10,
		StoreTimeout:     30 * time.Second,
		Fees: FeesConfig{
			Base:     fees.DefaultBaseFee.String(),
			Metadata: fees.DefaultMetadataFee.String(),
			Unit:     fees.DefaultUnit,
		},
	}
}

// Schedule parses the fee settings.
func (c Config) Schedule() (fees.Schedule, error) {
	return fees.ParseSchedule(c.Fees.Base, c.Fees.Metadata, c.Fees.Unit)
}

// Validate checks that the settings are usable together.
func (c Config) Validate() error {
	var errs []error
	if _, err := address.Lookup(c.Network); err != nil {
		errs = append(errs, err)
	}
	if !c.DryRun && c.DeployEndpoint == "" {
		errs = append(errs, errors.New("deploy endpoint is required (use dry-run for the stub deployer)"))
	}
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickhouseDSN == "") {
		errs = append(errs, errors.New("postgres and clickhouse DSNs are required (use memory storage otherwise)"))
	}
	if _, err := c.Schedule(); err != nil {
		errs = append(errs, err)
	}
	if c.DeployRetries < 0 {
		errs = append(errs, fmt.Errorf("deploy retries must be >= 0, got %d", c.DeployRetries))
	}
	if !c.UseMemory && c.PostgresMaxConns < 1 {
		errs = append(errs, fmt.Errorf("postgres max conns must be >= 1, got %d", c.PostgresMaxConns))
	}
	return errors.Join(errs...)
}

// LoadEnvFile sets variables from a dotenv file without overriding the
// environment. A missing file is not an error.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// EnvOr returns the environment value of key, or def when unset.
func EnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
