package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"token-deploy-wizard/internal/config"
)

// cli carries the settings shared by all subcommands.
type cli struct {
	v          *viper.Viper
	configPath string
	logger     *log.Logger
}

func newRootCommand(logger *log.Logger) *cobra.Command {
	c := &cli{v: viper.New(), logger: logger}

	root := &cobra.Command{
		Use:   "tokenctl",
		Short: "Validate, quote and deploy tokens",
		Long: `tokenctl drives the token deploy wizard from the terminal. Draft files
(YAML or JSON) can be validated, quoted and deployed non-interactively,
or the wizard can be run interactively.

Settings come from flags, TOKENCTL_* environment variables and an optional
tokenctl.yaml config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	def := config.Default()
	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ./tokenctl.yaml)")
	flags.String("network", def.Network, "target network (stellar, solana)")
	flags.String("deploy-endpoint", "", "deploy service JSON-RPC endpoint")
	flags.Duration("deploy-timeout", def.DeployTimeout, "deploy service request timeout")
	flags.Bool("dry-run", false, "simulate deployments with the stub deployer")
	flags.Bool("use-memory", true, "keep records in memory instead of PostgreSQL/ClickHouse")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("clickhouse-dsn", "", "ClickHouse connection string")
	flags.String("base-fee", def.Fees.Base, "base deployment fee")
	flags.String("metadata-fee", def.Fees.Metadata, "metadata surcharge")
	flags.String("fee-unit", def.Fees.Unit, "fee currency label")
	flags.BoolP("verbose", "v", false, "verbose logging")

	for key, name := range map[string]string{
		"network":         "network",
		"deploy_endpoint": "deploy-endpoint",
		"deploy_timeout":  "deploy-timeout",
		"dry_run":         "dry-run",
		"use_memory":      "use-memory",
		"postgres_dsn":    "postgres-dsn",
		"clickhouse_dsn":  "clickhouse-dsn",
		"fees.base":       "base-fee",
		"fees.metadata":   "metadata-fee",
		"fees.unit":       "fee-unit",
		"verbose":         "verbose",
	} {
		c.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newValidateCommand(c),
		newFeesCommand(c),
		newDeployCommand(c),
		newWizardCommand(c),
	)
	return root
}

// load resolves the configuration from all sources.
func (c *cli) load() (config.Config, error) {
	base := config.Default()
	base.UseMemory = true
	return config.Load(c.v, c.configPath, base)
}
