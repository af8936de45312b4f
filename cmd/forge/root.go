package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Forge - rewrite admission and streaming execution service",
	Long: `Forge is the admission and execution tier of a resume-rewrite service.

It fronts an OpenAI-compatible generation backend with:
  - Ordered admission control (global daily cap, result cache, quota, rate limit)
  - Live SSE streaming of rewrite variations
  - Exactly-once quota refunds for failed generations
  - Durable rewrite history with scheduled retention sweeps`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
