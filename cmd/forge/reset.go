package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"phrasecraft-hq/forge/pkg/cli"
	"phrasecraft-hq/forge/pkg/config"
	"phrasecraft-hq/forge/pkg/quota"
)

var resetCmd = &cobra.Command{
	Use:   "reset-quotas",
	Short: "Run one quota cycle reset sweep",
	Long: `Zero every ledger entry whose cycle boundary has passed and advance
it to the next one.

The running server performs this sweep on its own schedule; this command
exists for operators who run the sweep externally (a system cron, a
one-off after an incident) or without a server instance. The sweep is
idempotent: entries mid-cycle are untouched.

Examples:
  # Sweep the ledger named in config.yaml
  forge reset-quotas

  # Sweep a specific deployment's ledger
  forge reset-quotas --config /etc/forge/config.yaml`,
	RunE: resetQuotas,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func resetQuotas(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	reset, err := sweepLedger(cmd.Context(), cfg.Database.LedgerPath, cfg.Database.BusyTimeout, time.Now())
	if err != nil {
		return cli.NewCommandError("reset-quotas", err)
	}

	fmt.Printf("✓ Quota cycle reset: %d entries advanced\n", reset)
	return nil
}

// sweepLedger opens the ledger, runs one reset sweep, and closes it.
func sweepLedger(ctx context.Context, ledgerPath string, busyTimeout time.Duration, now time.Time) (int, error) {
	ledger, err := quota.NewSQLiteLedgerWithConfig(quota.SQLiteLedgerConfig{
		DBPath:      ledgerPath,
		BusyTimeout: busyTimeout,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open quota ledger: %w", err)
	}
	defer ledger.Close()

	reset, err := ledger.ResetCycle(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("reset sweep failed: %w", err)
	}
	return reset, nil
}
