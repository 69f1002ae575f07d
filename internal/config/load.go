package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix of tokenctl settings.
const EnvPrefix = "TOKENCTL"

// Load reads configuration from an optional YAML file and TOKENCTL_* env
// vars on top of base. Flags already bound to v take precedence.
func Load(v *viper.Viper, path string, base Config) (Config, error) {
	v.SetDefault("addr", base.Addr)
	v.SetDefault("metrics_addr", base.MetricsAddr)
	v.SetDefault("network", base.Network)
	v.SetDefault("deploy_endpoint", base.DeployEndpoint)
	v.SetDefault("deploy_timeout", base.DeployTimeout)
	v.SetDefault("deploy_retries", base.DeployRetries)
	v.SetDefault("dry_run", base.DryRun)
	v.SetDefault("postgres_dsn", base.PostgresDSN)
	v.SetDefault("postgres_max_conns", base.PostgresMaxConns)
	v.SetDefault("clickhouse_dsn", base.ClickhouseDSN)
	v.SetDefault("store_timeout", base.StoreTimeout)
	v.SetDefault("use_memory", base.UseMemory)
	v.SetDefault("fees.base", base.Fees.Base)
	v.SetDefault("fees.metadata", base.Fees.Metadata)
	v.SetDefault("fees.unit", base.Fees.Unit)
	v.SetDefault("verbose", base.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("tokenctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
