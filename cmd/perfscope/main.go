// Command perfscope is the CLI behind the performance-investigation slash
// commands of AI coding assistants: it runs shell benchmarks, records and
// compares baselines, binary-searches for breaking points, and tracks
// investigation state under the host assistant's state directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/logger"
	"github.com/perfscope/perfscope/pkg/presenter"
	"github.com/perfscope/perfscope/pkg/statedir"
)

func init() {
	viper.SetEnvPrefix("PERFSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.perfscope")
	viper.AddConfigPath(".")

	// Config file is optional.
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "perfscope",
	Short: "Performance investigation toolkit for AI coding assistants",
	Long: `perfscope runs shell benchmarks, records and compares metric baselines,
binary-searches for breaking points, and tracks performance investigations.

State lives under the host assistant's directory (.claude, .opencode, or
.codex), overridable via ` + statedir.EnvOverride + `.

Every flag can also be set through a PERFSCOPE_* environment variable or a
config.yaml in $HOME/.perfscope or the working directory; flags win over
environment, environment wins over the config file.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Bind the executed command's flags so viper resolves each value
		// as flag > env > config file > flag default.
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return errors.Wrap(err, "failed to bind flags")
		}

		if err := logger.SetLogLevel(viper.GetString("log-level")); err != nil {
			return err
		}
		logger.SetLogFormat(viper.GetString("log-format"))
		presenter.SetQuiet(viper.GetBool("quiet"))

		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
}

// dataDir resolves the perfscope data directory for the current project.
func dataDir() (string, error) {
	resolver, err := statedir.NewResolver()
	if err != nil {
		return "", err
	}
	return resolver.DataDir()
}

func execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		return 1
	}
	return 0
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = logger.WithLogger(ctx, logger.L)

	os.Exit(execute(ctx))
}
