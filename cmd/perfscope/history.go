package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/history"
	"github.com/perfscope/perfscope/pkg/presenter"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded benchmark runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return showHistory(cmd.Context(), viper.GetInt("limit"), viper.GetString("investigation"))
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	historyCmd.Flags().String("investigation", "", "Show only runs attached to this investigation ID")
	rootCmd.AddCommand(historyCmd)
}

func showHistory(ctx context.Context, limit int, investigationID string) error {
	dir, err := dataDir()
	if err != nil {
		return err
	}

	store, err := history.NewStore(ctx, dir)
	if err != nil {
		return err
	}
	defer store.Close()

	var runs []history.Run
	if investigationID != "" {
		runs, err = store.ByInvestigation(ctx, investigationID)
	} else {
		runs, err = store.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		presenter.Info("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tBASELINE\tCOMMAND")
	for _, run := range runs {
		baselineVersion := "-"
		if run.BaselineVersion != nil {
			baselineVersion = *run.BaselineVersion
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			run.StartedAt.Format(time.RFC3339),
			(time.Duration(run.DurationMs) * time.Millisecond).String(),
			baselineVersion, run.Command)
	}
	return w.Flush()
}
