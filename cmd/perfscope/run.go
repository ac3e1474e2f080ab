package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/baseline"
	"github.com/perfscope/perfscope/pkg/history"
	"github.com/perfscope/perfscope/pkg/logger"
	"github.com/perfscope/perfscope/pkg/perf"
	"github.com/perfscope/perfscope/pkg/presenter"
)

// RunConfig holds the flags of the run command.
type RunConfig struct {
	MinDuration     time.Duration
	Timeout         time.Duration
	BaselineVersion string
	InvestigationID string
	Filter          string
}

// NewRunConfig returns run defaults.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		MinDuration: 0,
		Timeout:     10 * time.Minute,
	}
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command>",
	Short: "Run a benchmark command and scrape its metrics",
	Long: `Run a shell benchmark and parse metrics from its output.

The command must print metrics to stdout, either as a JSON object between
PERF_METRICS_START and PERF_METRICS_END lines, or as
"PERF_METRICS key=value" lines.

Examples:
  perfscope run -- make bench
  perfscope run --min-duration 5s -- ./bench.sh --iterations 1000
  perfscope run --baseline v1.0.0 -- make bench`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getRunConfig()
		return runBenchmark(cmd.Context(), strings.Join(args, " "), config)
	},
}

func init() {
	initRunFlags()
	rootCmd.AddCommand(runCmd)
}

func initRunFlags() {
	defaults := NewRunConfig()
	runCmd.Flags().Duration("min-duration", defaults.MinDuration, "Reject runs that finish faster than this")
	runCmd.Flags().Duration("timeout", defaults.Timeout, "Kill the benchmark after this duration")
	runCmd.Flags().String("baseline", defaults.BaselineVersion, "Compare the run against this baseline version")
	runCmd.Flags().String("investigation", defaults.InvestigationID, "Attach the run to an investigation ID")
	runCmd.Flags().String("filter", defaults.Filter, "Glob pattern restricting which metrics are shown")
}

// getRunConfig reads the run configuration through viper, so values bound in
// PersistentPreRunE resolve from flags, PERFSCOPE_* env vars, or config.yaml.
func getRunConfig() *RunConfig {
	return &RunConfig{
		MinDuration:     viper.GetDuration("min-duration"),
		Timeout:         viper.GetDuration("timeout"),
		BaselineVersion: viper.GetString("baseline"),
		InvestigationID: viper.GetString("investigation"),
		Filter:          viper.GetString("filter"),
	}
}

func runBenchmark(ctx context.Context, command string, config *RunConfig) error {
	runner := perf.NewRunner()

	result, err := runner.Run(ctx, perf.RunRequest{
		Command:     command,
		MinDuration: config.MinDuration,
		Timeout:     config.Timeout,
	})
	if err != nil {
		return err
	}

	presenter.Section("Benchmark Results")
	presenter.Info(fmt.Sprintf("Command:  %s", result.Command))
	presenter.Info(fmt.Sprintf("Duration: %s", result.Duration.Round(time.Millisecond)))
	printMetrics(result.Metrics)

	recordRun(ctx, result, config.BaselineVersion, config.InvestigationID)

	if config.BaselineVersion != "" {
		return compareAgainstBaseline(ctx, result, config.BaselineVersion, config.Filter)
	}
	return nil
}

// recordRun appends the run to the history database. History is advisory and
// never fails the benchmark.
func recordRun(ctx context.Context, result *perf.RunResult, baselineVersion, investigationID string) {
	dir, err := dataDir()
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to resolve data directory, run not recorded")
		return
	}

	store, err := history.NewStore(ctx, dir)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to open history database, run not recorded")
		return
	}
	defer store.Close()

	if _, err := store.Record(ctx, result, baselineVersion, investigationID); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record run in history")
	}
}

func compareAgainstBaseline(ctx context.Context, result *perf.RunResult, version, filter string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}

	store, err := baseline.NewStore(dir)
	if err != nil {
		return err
	}

	base, err := store.Load(ctx, version)
	if err != nil {
		return err
	}
	if base == nil {
		return errors.Errorf("baseline not found: %s", version)
	}

	deltas := perf.Compare(base.Metrics, result.Metrics)
	deltas, err = perf.FilterDeltas(deltas, filter)
	if err != nil {
		return err
	}

	presenter.Separator()
	presenter.Section(fmt.Sprintf("Comparison against %s", base.Version))
	printDeltas(deltas)
	return nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		presenter.Info(fmt.Sprintf("  %-24s %g", name, metrics[name]))
	}
}

func printDeltas(deltas []perf.MetricDelta) {
	for _, d := range deltas {
		percent := "n/a"
		if d.Percent != nil {
			percent = fmt.Sprintf("%+.2f%%", *d.Percent*100)
		}

		note := ""
		switch {
		case !d.InBaseline:
			note = " (new metric)"
		case !d.InCurrent:
			note = " (missing from current run)"
		}

		presenter.Info(fmt.Sprintf("  %-24s %g -> %g  delta %+g (%s)%s",
			d.Name, d.Baseline, d.Current, d.Delta, percent, note))
	}
}
