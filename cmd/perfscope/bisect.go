package main

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/perf"
	"github.com/perfscope/perfscope/pkg/presenter"
)

const bisectValuePlaceholder = "{value}"

// BisectConfig holds the flags of the bisect command.
type BisectConfig struct {
	Min         int
	Max         int
	Command     string
	Metric      string
	Limit       float64
	MinDuration time.Duration
	Timeout     time.Duration
}

// NewBisectConfig returns bisect defaults.
func NewBisectConfig() *BisectConfig {
	return &BisectConfig{
		Min:     1,
		Max:     1024,
		Timeout: 10 * time.Minute,
	}
}

var bisectCmd = &cobra.Command{
	Use:   "bisect --command '<template>' [flags]",
	Short: "Binary-search for the parameter value where a benchmark breaks",
	Long: `Binary-search [min, max] for the lowest parameter value at which the
benchmark first breaks. The command template must contain a ` + bisectValuePlaceholder + `
placeholder, replaced with the candidate value on every probe.

A probe "holds" when the command exits zero (and, with --metric and --limit,
when that metric stays at or under the limit). The probe is assumed
monotonic: once it breaks, it breaks for every larger value.

Examples:
  perfscope bisect --min 1 --max 4096 --command './load.sh --clients {value}'
  perfscope bisect --max 256 --metric p99_ms --limit 50 --command 'make bench N={value}'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := getBisectConfig()
		return runBisect(cmd.Context(), config)
	},
}

func init() {
	defaults := NewBisectConfig()
	bisectCmd.Flags().Int("min", defaults.Min, "Lower bound of the search range")
	bisectCmd.Flags().Int("max", defaults.Max, "Upper bound of the search range")
	bisectCmd.Flags().String("command", defaults.Command, "Benchmark command template containing "+bisectValuePlaceholder)
	bisectCmd.Flags().String("metric", defaults.Metric, "Metric that must stay within --limit for a probe to hold")
	bisectCmd.Flags().Float64("limit", defaults.Limit, "Upper limit for --metric")
	bisectCmd.Flags().Duration("min-duration", defaults.MinDuration, "Reject probe runs that finish faster than this")
	bisectCmd.Flags().Duration("timeout", defaults.Timeout, "Kill each probe after this duration")
	rootCmd.AddCommand(bisectCmd)
}

func getBisectConfig() *BisectConfig {
	return &BisectConfig{
		Min:         viper.GetInt("min"),
		Max:         viper.GetInt("max"),
		Command:     viper.GetString("command"),
		Metric:      viper.GetString("metric"),
		Limit:       viper.GetFloat64("limit"),
		MinDuration: viper.GetDuration("min-duration"),
		Timeout:     viper.GetDuration("timeout"),
	}
}

func validateBisectConfig(config *BisectConfig) error {
	if config.Command == "" {
		return errors.New("--command is required")
	}
	if !strings.Contains(config.Command, bisectValuePlaceholder) {
		return errors.Errorf("command template must contain %s", bisectValuePlaceholder)
	}
	if config.Metric != "" && config.Limit == 0 {
		return errors.New("--metric requires --limit")
	}
	return nil
}

func runBisect(ctx context.Context, config *BisectConfig) error {
	if err := validateBisectConfig(config); err != nil {
		return err
	}

	runner := perf.NewRunner()
	probe := newBisectProbe(runner, config)

	presenter.Info(fmt.Sprintf("Searching [%d, %d] for the breaking point...", config.Min, config.Max))

	breaking, err := perf.FindBreakingPoint(ctx, config.Min, config.Max, probe)
	if err != nil {
		return err
	}

	if breaking == nil {
		presenter.Success(fmt.Sprintf("No breaking point: the benchmark holds across [%d, %d]", config.Min, config.Max))
		return nil
	}

	presenter.Warning(fmt.Sprintf("Breaking point found at %d", *breaking))
	if *breaking > config.Min {
		presenter.Info(fmt.Sprintf("Last holding value: %d", *breaking-1))
	}
	return nil
}

// newBisectProbe builds a probe that substitutes the candidate value into the
// command template and runs it. A non-zero exit means the probe broke; any
// other runner failure aborts the search.
func newBisectProbe(runner *perf.Runner, config *BisectConfig) perf.Probe {
	return func(ctx context.Context, value int) (bool, error) {
		command := strings.ReplaceAll(config.Command, bisectValuePlaceholder, strconv.Itoa(value))
		presenter.Info(fmt.Sprintf("  probing %d: %s", value, command))

		result, err := runner.Run(ctx, perf.RunRequest{
			Command:     command,
			MinDuration: config.MinDuration,
			Timeout:     config.Timeout,
		})
		if err != nil {
			var exitErr *exec.ExitError
			switch {
			case errors.As(err, &exitErr):
				return false, nil
			case config.Metric == "" && errors.Is(err, perf.ErrNoMetrics):
				// Probe commands are not required to emit metrics unless a
				// metric limit was asked for.
				return true, nil
			}
			return false, err
		}

		if config.Metric != "" {
			observed, ok := result.Metrics[config.Metric]
			if !ok {
				return false, errors.Errorf("probe output has no metric %q", config.Metric)
			}
			return observed <= config.Limit, nil
		}

		return true, nil
	}
}
