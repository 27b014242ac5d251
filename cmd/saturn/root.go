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
	Use:   "saturn",
	Short: "Saturn - quota-aware admission control for rate-limited APIs",
	Long: `Saturn meters outbound API calls against multiple concurrent token
budgets and admits an operation only when every budget can afford it.

It provides:
  - Atomic all-or-nothing admission across every configured budget
  - Blocking acquisition with a configurable timeout
  - Per-operation token costs (a search may cost 100x a list)
  - Live quota status, Prometheus metrics, and a decision audit log`,
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
