package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"calibra-hq/saturn/pkg/cli"
	"calibra-hq/saturn/pkg/gate"
)

var benchFlags struct {
	operation   string
	duration    time.Duration
	rate        int
	concurrency int
	timeout     time.Duration
	format      string
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Load-test the gate with the configured quotas",
	Long: `Drive synthetic operations through an in-process gate built from the
configured quotas and report admission behavior.

This answers "what does a client at N requests per second actually see
under these budgets": how many operations are admitted immediately, how
many only after waiting, and how many are denied.

Examples:
  # 10 ops/s for 30 seconds against the configured quotas
  saturn bench

  # Aggressive search traffic
  saturn bench --operation search --rate 50 --duration 10s

  # Allow each operation to wait up to a second for tokens
  saturn bench --timeout 1s --format json`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVar(&benchFlags.operation, "operation", "list", "operation kind to submit")
	benchCmd.Flags().DurationVar(&benchFlags.duration, "duration", 30*time.Second, "test duration")
	benchCmd.Flags().IntVar(&benchFlags.rate, "rate", 10, "operations per second")
	benchCmd.Flags().IntVar(&benchFlags.concurrency, "concurrency", 1, "concurrent workers")
	benchCmd.Flags().DurationVar(&benchFlags.timeout, "timeout", 0, "per-operation acquisition timeout (0 = single attempt)")
	benchCmd.Flags().StringVar(&benchFlags.format, "format", "text", "output format: text, json")
}

type benchResults struct {
	Operation   string          `json:"operation"`
	Cost        int64           `json:"cost"`
	Total       int             `json:"total"`
	Admitted    int             `json:"admitted"`
	Denied      int             `json:"denied"`
	Duration    time.Duration   `json:"-"`
	DurationStr string          `json:"duration"`
	Waits       []time.Duration `json:"-"`
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if benchFlags.rate < 1 || benchFlags.concurrency < 1 {
		return cli.NewCommandError("bench", fmt.Errorf("rate and concurrency must be positive"))
	}

	// The bench gate is silent; admission denials at high rates are the
	// whole point of the exercise.
	g, err := gate.New(gate.Config{
		Quotas: cfg.Quotas,
		Costs:  cfg.Costs,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return cli.NewCommandError("bench", err)
	}
	defer g.Close()

	total := int(benchFlags.duration.Seconds()) * benchFlags.rate
	if total < 1 {
		total = 1
	}

	fmt.Println("Saturn Bench")
	fmt.Println("============")
	fmt.Printf("Operation: %s (cost %d)\n", benchFlags.operation, g.Cost(benchFlags.operation))
	fmt.Printf("Rate: %d ops/s for %s (%d operations)\n", benchFlags.rate, benchFlags.duration, total)
	fmt.Printf("Concurrency: %d\n", benchFlags.concurrency)
	fmt.Println()

	results := runLoad(g, total)

	if benchFlags.format == string(cli.FormatJSON) {
		results.DurationStr = results.Duration.String()
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, results)
	}

	displayResults(results)
	return nil
}

func runLoad(g *gate.Gate, total int) *benchResults {
	results := &benchResults{
		Operation: benchFlags.operation,
		Cost:      g.Cost(benchFlags.operation),
		Total:     total,
		Waits:     make([]time.Duration, 0, total),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	progress := cli.NewProgressReporter(nil)
	progress.Start(int64(total))

	interval := time.Second / time.Duration(benchFlags.rate)
	work := make(chan struct{})

	start := time.Now()

	for i := 0; i < benchFlags.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				opStart := time.Now()
				allowed := g.AdmitWait(benchFlags.operation, benchFlags.timeout)
				wait := time.Since(opStart)

				mu.Lock()
				if allowed {
					results.Admitted++
				} else {
					results.Denied++
				}
				results.Waits = append(results.Waits, wait)
				done := results.Admitted + results.Denied
				mu.Unlock()

				progress.Update(int64(done))
			}
		}()
	}

	ticker := time.NewTicker(interval)
	for sent := 0; sent < total; sent++ {
		<-ticker.C
		work <- struct{}{}
	}
	ticker.Stop()
	close(work)
	wg.Wait()

	results.Duration = time.Since(start)
	progress.Finish()
	return results
}

func displayResults(r *benchResults) {
	fmt.Println()
	fmt.Println("Results")
	fmt.Println("-------")
	fmt.Printf("Total:    %d operations in %s\n", r.Total, r.Duration.Round(time.Millisecond))
	fmt.Printf("Admitted: %d (%.1f%%)\n", r.Admitted, pct(r.Admitted, r.Total))
	fmt.Printf("Denied:   %d (%.1f%%)\n", r.Denied, pct(r.Denied, r.Total))

	if len(r.Waits) > 0 {
		sorted := make([]time.Duration, len(r.Waits))
		copy(sorted, r.Waits)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		fmt.Println()
		fmt.Printf("Wait p50: %s\n", percentile(sorted, 0.50).Round(time.Microsecond))
		fmt.Printf("Wait p95: %s\n", percentile(sorted, 0.95).Round(time.Microsecond))
		fmt.Printf("Wait p99: %s\n", percentile(sorted, 0.99).Round(time.Microsecond))
		fmt.Printf("Wait max: %s\n", sorted[len(sorted)-1].Round(time.Microsecond))
	}
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
