package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/investigation"
	"github.com/perfscope/perfscope/pkg/presenter"
)

var investigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Track performance investigations",
	Long: `Start and update performance investigation records. An investigation ties a
benchmark scenario to a baseline and tracks which phase the work is in
(reproduce, measure, isolate, verify).`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var investigateStartCmd = &cobra.Command{
	Use:   "start --command '<command>' [flags]",
	Short: "Start a new investigation and mark it current",
	RunE: func(cmd *cobra.Command, _ []string) error {
		command := viper.GetString("command")
		if command == "" {
			return errors.New("--command is required")
		}

		return startInvestigation(cmd.Context(), investigation.Scenario{
			Command:         command,
			BaselineVersion: viper.GetString("baseline"),
			Notes:           viper.GetString("notes"),
		})
	},
}

var investigateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current investigation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return showCurrentInvestigation(cmd.Context())
	},
}

var investigateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all investigations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listInvestigations(cmd.Context())
	},
}

var investigateSetPhaseCmd = &cobra.Command{
	Use:   "set-phase <phase>",
	Short: "Move an investigation to a phase (reproduce, measure, isolate, verify)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phase, err := investigation.ParsePhase(args[0])
		if err != nil {
			return err
		}
		return setInvestigationPhase(cmd.Context(), viper.GetString("id"), phase)
	},
}

var investigatePauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause an investigation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setInvestigationStatus(cmd.Context(), viper.GetString("id"), investigation.StatusPaused)
	},
}

var investigateResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused investigation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setInvestigationStatus(cmd.Context(), viper.GetString("id"), investigation.StatusActive)
	},
}

var investigateResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an investigation and clear the current marker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return resolveInvestigation(cmd.Context(), viper.GetString("id"))
	},
}

func init() {
	investigateStartCmd.Flags().String("command", "", "Benchmark command exhibiting the regression")
	investigateStartCmd.Flags().String("baseline", "", "Baseline version the scenario is compared against")
	investigateStartCmd.Flags().String("notes", "", "Free-form scenario notes")

	for _, cmd := range []*cobra.Command{
		investigateSetPhaseCmd,
		investigatePauseCmd,
		investigateResumeCmd,
		investigateResolveCmd,
	} {
		cmd.Flags().String("id", "", "Investigation ID (defaults to the current investigation)")
	}

	investigateCmd.AddCommand(investigateStartCmd)
	investigateCmd.AddCommand(investigateStatusCmd)
	investigateCmd.AddCommand(investigateListCmd)
	investigateCmd.AddCommand(investigateSetPhaseCmd)
	investigateCmd.AddCommand(investigatePauseCmd)
	investigateCmd.AddCommand(investigateResumeCmd)
	investigateCmd.AddCommand(investigateResolveCmd)
	rootCmd.AddCommand(investigateCmd)
}

func openInvestigationStore() (*investigation.Store, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, err
	}
	return investigation.NewStore(dir)
}

// resolveInvestigationID falls back to the current investigation when no
// explicit ID was given.
func resolveInvestigationID(ctx context.Context, store *investigation.Store, id string) (string, error) {
	if id != "" {
		return id, nil
	}

	current, err := store.Current(ctx)
	if err != nil {
		return "", err
	}
	if current == nil {
		return "", errors.New("no current investigation; pass --id or start one")
	}
	return current.ID, nil
}

func startInvestigation(ctx context.Context, scenario investigation.Scenario) error {
	store, err := openInvestigationStore()
	if err != nil {
		return err
	}

	inv, err := store.Start(ctx, scenario)
	if err != nil {
		return err
	}

	presenter.Success(fmt.Sprintf("Investigation %s started", inv.ID))
	printInvestigation(inv)
	return nil
}

func showCurrentInvestigation(ctx context.Context) error {
	store, err := openInvestigationStore()
	if err != nil {
		return err
	}

	inv, err := store.Current(ctx)
	if err != nil {
		return err
	}
	if inv == nil {
		presenter.Info("No current investigation.")
		return nil
	}

	printInvestigation(inv)
	return nil
}

func listInvestigations(ctx context.Context) error {
	store, err := openInvestigationStore()
	if err != nil {
		return err
	}

	investigations, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(investigations) == 0 {
		presenter.Info("No investigations.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPHASE\tUPDATED\tCOMMAND")
	for _, inv := range investigations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			inv.ID, inv.Status, inv.Phase, inv.UpdatedAt.Format(time.RFC3339), inv.Scenario.Command)
	}
	return w.Flush()
}

func setInvestigationPhase(ctx context.Context, id string, phase investigation.Phase) error {
	store, err := openInvestigationStore()
	if err != nil {
		return err
	}

	id, err = resolveInvestigationID(ctx, store, id)
	if err != nil {
		return err
	}

	inv, err := store.SetPhase(ctx, id, phase)
	if err != nil {
		return err
	}
	presenter.Success(fmt.Sprintf("Investigation %s moved to phase %s", inv.ID, inv.Phase))
	return nil
}

func setInvestigationStatus(ctx context.Context, id string, status investigation.Status) error {
	store, err := openInvestigationStore()
	if err != nil {
		return err
	}

	id, err = resolveInvestigationID(ctx, store, id)
	if err != nil {
		return err
	}

	inv, err := store.SetStatus(ctx, id, status)
	if err != nil {
		return err
	}
	presenter.Success(fmt.Sprintf("Investigation %s is now %s", inv.ID, inv.Status))
	return nil
}

func resolveInvestigation(ctx context.Context, id string) error {
	store, err := openInvestigationStore()
	if err != nil {
		return err
	}

	id, err = resolveInvestigationID(ctx, store, id)
	if err != nil {
		return err
	}

	inv, err := store.Resolve(ctx, id)
	if err != nil {
		return err
	}
	presenter.Success(fmt.Sprintf("Investigation %s resolved", inv.ID))
	return nil
}

func printInvestigation(inv *investigation.Investigation) {
	presenter.Section(fmt.Sprintf("Investigation %s", inv.ID))
	presenter.Info(fmt.Sprintf("Status:   %s", inv.Status))
	presenter.Info(fmt.Sprintf("Phase:    %s", inv.Phase))
	presenter.Info(fmt.Sprintf("Command:  %s", inv.Scenario.Command))
	if inv.Scenario.BaselineVersion != "" {
		presenter.Info(fmt.Sprintf("Baseline: %s", inv.Scenario.BaselineVersion))
	}
	if inv.Scenario.Notes != "" {
		presenter.Info(fmt.Sprintf("Notes:    %s", inv.Scenario.Notes))
	}
	presenter.Info(fmt.Sprintf("Updated:  %s", inv.UpdatedAt.Format(time.RFC3339)))
}
