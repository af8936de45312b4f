package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"phrasecraft-hq/forge/pkg/cli"
	"phrasecraft-hq/forge/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the server.

Validation checks every section: listen address, timeout ordering
(write_timeout must exceed the backend timeout), backend base URL,
plan names, and the cron expressions driving the background sweeps.
All problems are reported at once, not just the first.

Examples:
  # Validate the default config.yaml
  forge validate

  # Validate a specific file
  forge validate --config /etc/forge/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	cfg := config.GetConfig()

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  listen address:   %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  backend model:    %s\n", cfg.Backend.Model)
	fmt.Printf("  global daily cap: %d\n", cfg.Limits.GlobalDailyCap)
	fmt.Printf("  rate per minute:  %d\n", cfg.Limits.RatePerMinute)
	if cfg.Redis.Enabled {
		fmt.Printf("  counter store:    redis (%s)\n", cfg.Redis.Address)
	} else {
		fmt.Println("  counter store:    in-process (single instance only)")
	}
	return nil
}
