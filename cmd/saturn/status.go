package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"calibra-hq/saturn/pkg/cli"
)

var statusFlags struct {
	address string
	format  string
	timeout time.Duration
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query quota status from a running instance",
	Long: `Query the live quota balances of a running Saturn instance.

The command calls GET /v1/quotas on the ops server and prints the
available tokens of every configured budget. Reading status never
consumes tokens.

Examples:
  # Query the default address
  saturn status

  # Query a remote instance as JSON
  saturn status --address 10.0.0.5:8080 --format json`,
	RunE: queryStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFlags.address, "address", "a", "127.0.0.1:8080", "ops server address")
	statusCmd.Flags().StringVar(&statusFlags.format, "format", "text", "output format: text, json")
	statusCmd.Flags().DurationVar(&statusFlags.timeout, "timeout", 5*time.Second, "request timeout")
}

type statusResult struct {
	Quotas map[string]struct {
		AvailableTokens float64 `json:"available_tokens"`
		MaxTokens       int64   `json:"max_tokens"`
		RefillInterval  string  `json:"refill_interval"`
	} `json:"quotas"`
}

func queryStatus(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("http://%s/v1/quotas", statusFlags.address)

	client := &http.Client{Timeout: statusFlags.timeout}
	resp, err := client.Get(url)
	if err != nil {
		return cli.NewCommandError("status", fmt.Errorf("failed to reach %s: %w", statusFlags.address, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cli.NewCommandError("status", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url))
	}

	var result statusResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return cli.NewCommandError("status", fmt.Errorf("failed to parse response: %w", err))
	}

	if statusFlags.format == string(cli.FormatJSON) {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result)
	}

	names := make([]string, 0, len(result.Quotas))
	for name := range result.Quotas {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Quota status (%s):\n\n", statusFlags.address)
	for _, name := range names {
		q := result.Quotas[name]
		pct := 0.0
		if q.MaxTokens > 0 {
			pct = q.AvailableTokens / float64(q.MaxTokens) * 100
		}
		bar := renderBar(pct, 20)
		fmt.Printf("  %-20s [%s] %.1f/%d (%.0f%%) every %s\n",
			name, bar, q.AvailableTokens, q.MaxTokens, pct, q.RefillInterval)
	}

	return nil
}

func renderBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
