package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/baseline"
	"github.com/perfscope/perfscope/pkg/perf"
	"github.com/perfscope/perfscope/pkg/presenter"
)

// BaselineRecordConfig holds the flags of baseline record.
type BaselineRecordConfig struct {
	Version     string
	MinDuration time.Duration
	Timeout     time.Duration
}

// NewBaselineRecordConfig returns record defaults.
func NewBaselineRecordConfig() *BaselineRecordConfig {
	return &BaselineRecordConfig{
		Timeout: 10 * time.Minute,
	}
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage benchmark baselines",
	Long:  `Record, list, show, compare, and delete benchmark metric baselines.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var baselineRecordCmd = &cobra.Command{
	Use:   "record --version <version> -- <command>",
	Short: "Run a benchmark and record its metrics as a baseline",
	Long: `Run a benchmark command and store the parsed metrics as the baseline for a
version. Re-recording a version overwrites the previous baseline.

Examples:
  perfscope baseline record --version v1.4.0 -- make bench
  perfscope baseline record --version $(git describe) --min-duration 10s -- ./bench.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getBaselineRecordConfig()
		if config.Version == "" {
			return errors.New("--version is required")
		}
		return recordBaseline(cmd.Context(), strings.Join(args, " "), config)
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded baselines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listBaselines(cmd.Context())
	},
}

var baselineShowCmd = &cobra.Command{
	Use:   "show <version>",
	Short: "Show a recorded baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showBaseline(cmd.Context(), args[0])
	},
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare <version> [flags] [-- <command>]",
	Short: "Re-run a benchmark and compare it against a baseline",
	Long: `Run a benchmark and diff its metrics against the recorded baseline for a
version. Without an explicit command the baseline's own recorded command is
re-run.

Examples:
  perfscope baseline compare v1.4.0
  perfscope baseline compare v1.4.0 --filter 'latency_*'
  perfscope baseline compare v1.4.0 -- make bench-quick`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := viper.GetString("filter")
		minDuration := viper.GetDuration("min-duration")
		timeout := viper.GetDuration("timeout")

		command := ""
		if len(args) > 1 {
			command = strings.Join(args[1:], " ")
		}
		return compareBaseline(cmd.Context(), args[0], command, filter, minDuration, timeout)
	},
}

var baselineDeleteCmd = &cobra.Command{
	Use:   "delete <version>",
	Short: "Delete a recorded baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return deleteBaseline(cmd.Context(), args[0])
	},
}

func init() {
	recordDefaults := NewBaselineRecordConfig()
	baselineRecordCmd.Flags().String("version", recordDefaults.Version, "Version to record the baseline under")
	baselineRecordCmd.Flags().Duration("min-duration", recordDefaults.MinDuration, "Reject runs that finish faster than this")
	baselineRecordCmd.Flags().Duration("timeout", recordDefaults.Timeout, "Kill the benchmark after this duration")

	baselineCompareCmd.Flags().String("filter", "", "Glob pattern restricting which metrics are compared")
	baselineCompareCmd.Flags().Duration("min-duration", 0, "Reject runs that finish faster than this")
	baselineCompareCmd.Flags().Duration("timeout", 10*time.Minute, "Kill the benchmark after this duration")

	baselineCmd.AddCommand(baselineRecordCmd)
	baselineCmd.AddCommand(baselineListCmd)
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselineCompareCmd)
	baselineCmd.AddCommand(baselineDeleteCmd)
	rootCmd.AddCommand(baselineCmd)
}

func getBaselineRecordConfig() *BaselineRecordConfig {
	return &BaselineRecordConfig{
		Version:     viper.GetString("version"),
		MinDuration: viper.GetDuration("min-duration"),
		Timeout:     viper.GetDuration("timeout"),
	}
}

func openBaselineStore() (*baseline.Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	return baseline.NewStore(dir)
}

func recordBaseline(ctx context.Context, command string, config *BaselineRecordConfig) error {
	runner := perf.NewRunner()

	result, err := runner.Run(ctx, perf.RunRequest{
		Command:     command,
		MinDuration: config.MinDuration,
		Timeout:     config.Timeout,
	})
	if err != nil {
		return err
	}

	store, err := openBaselineStore()
	if err != nil {
		return err
	}

	b := baseline.New(config.Version, command, result.Metrics)
	if err := store.Save(ctx, b); err != nil {
		return err
	}

	recordRun(ctx, result, config.Version, "")

	presenter.Success(fmt.Sprintf("Baseline %s recorded (%d metrics)", config.Version, len(b.Metrics)))
	printMetrics(b.Metrics)
	return nil
}

func listBaselines(ctx context.Context) error {
	store, err := openBaselineStore()
	if err != nil {
		return err
	}

	baselines, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(baselines) == 0 {
		presenter.Info("No baselines recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tRECORDED\tMETRICS\tCOMMAND")
	for _, b := range baselines {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			b.Version, b.RecordedAt.Format(time.RFC3339), len(b.Metrics), b.Command)
	}
	return w.Flush()
}

func showBaseline(ctx context.Context, version string) error {
	store, err := openBaselineStore()
	if err != nil {
		return err
	}

	b, err := store.Load(ctx, version)
	if err != nil {
		return err
	}
	if b == nil {
		return errors.Errorf("baseline not found: %s", version)
	}

	presenter.Section(fmt.Sprintf("Baseline %s", b.Version))
	presenter.Info(fmt.Sprintf("Recorded: %s", b.RecordedAt.Format(time.RFC3339)))
	presenter.Info(fmt.Sprintf("Command:  %s", b.Command))
	presenter.Info(fmt.Sprintf("Machine:  %s/%s, %d CPUs, %s", b.Env.OS, b.Env.Arch, b.Env.CPUCount, b.Env.Hostname))
	printMetrics(b.Metrics)
	return nil
}

func compareBaseline(ctx context.Context, version, command, filter string, minDuration, timeout time.Duration) error {
	store, err := openBaselineStore()
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

	if command == "" {
		command = base.Command
	}

	runner := perf.NewRunner()
	result, err := runner.Run(ctx, perf.RunRequest{
		Command:     command,
		MinDuration: minDuration,
		Timeout:     timeout,
	})
	if err != nil {
		return err
	}

	recordRun(ctx, result, version, "")

	deltas := perf.Compare(base.Metrics, result.Metrics)
	deltas, err = perf.FilterDeltas(deltas, filter)
	if err != nil {
		return err
	}

	presenter.Section(fmt.Sprintf("Comparison against %s", base.Version))
	printDeltas(deltas)
	return nil
}

func deleteBaseline(ctx context.Context, version string) error {
	store, err := openBaselineStore()
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, version); err != nil {
		return err
	}
	presenter.Success(fmt.Sprintf("Baseline %s deleted", version))
	return nil
}
