package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"calibra-hq/saturn/pkg/cli"
	"calibra-hq/saturn/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a Saturn configuration file.

The file is parsed, defaults are applied, and the result is checked the
same way the run command checks it: every quota must have a positive
capacity and interval, every cost must be positive, and the storage and
server sections must be consistent.

Examples:
  # Validate the default config file
  saturn validate

  # Validate a specific file
  saturn validate --config /etc/saturn/config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	fmt.Println()

	names := make([]string, 0, len(cfg.Quotas))
	for name := range cfg.Quotas {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Quotas (%d):\n", len(names))
	for _, name := range names {
		q := cfg.Quotas[name]
		fmt.Printf("  %-20s %d tokens / %s\n", name, q.Tokens, q.Interval)
	}

	ops := make([]string, 0, len(cfg.Costs))
	for op := range cfg.Costs {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Printf("\nOperation costs (%d, unknown operations cost 1):\n", len(ops))
	for _, op := range ops {
		fmt.Printf("  %-20s %d\n", op, cfg.Costs[op])
	}

	fmt.Printf("\nStorage: %s", cfg.Storage.Backend)
	if cfg.Storage.Backend == "sqlite" {
		fmt.Printf(" (%s)", cfg.Storage.Path)
	}
	fmt.Println()

	if cfg.Server.Enabled {
		fmt.Printf("Server: %s\n", cfg.Server.ListenAddress)
	} else {
		fmt.Println("Server: disabled")
	}

	return nil
}
