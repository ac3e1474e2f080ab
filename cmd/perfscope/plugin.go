package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perfscope/perfscope/pkg/plugins"
	"github.com/perfscope/perfscope/pkg/presenter"
	"github.com/perfscope/perfscope/pkg/statedir"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Inspect installed assistant plugins",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugin packages",
	RunE: func(_ *cobra.Command, _ []string) error {
		return listPluginPackages(viper.GetBool("global"))
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List discovered slash commands",
	RunE: func(_ *cobra.Command, _ []string) error {
		return listCommands()
	},
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List discovered agents",
	RunE: func(_ *cobra.Command, _ []string) error {
		return listAgents()
	},
}

func init() {
	pluginListCmd.Flags().BoolP("global", "g", false, "List packages from the global host directory instead of the project")

	pluginCmd.AddCommand(pluginListCmd)
	rootCmd.AddCommand(pluginCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(agentsCmd)
}

func newPluginDiscovery() (*plugins.Discovery, error) {
	resolver, err := statedir.NewResolver()
	if err != nil {
		return nil, err
	}
	return plugins.NewDiscovery(resolver.HostDir())
}

func listPluginPackages(global bool) error {
	discovery, err := newPluginDiscovery()
	if err != nil {
		return err
	}

	packages, err := discovery.ListInstalledPlugins(global)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		presenter.Info("No plugin packages installed.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tCOMMANDS\tAGENTS")
	for _, pkg := range packages {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			pkg.Name, strings.Join(pkg.Commands, ", "), strings.Join(pkg.Agents, ", "))
	}
	return w.Flush()
}

func listCommands() error {
	discovery, err := newPluginDiscovery()
	if err != nil {
		return err
	}

	commands, err := discovery.DiscoverCommands()
	if err != nil {
		return err
	}
	return printPluginTable("COMMAND", commands)
}

func listAgents() error {
	discovery, err := newPluginDiscovery()
	if err != nil {
		return err
	}

	agents, err := discovery.DiscoverAgents()
	if err != nil {
		return err
	}
	return printPluginTable("AGENT", agents)
}

func printPluginTable(header string, found map[string]plugins.Plugin) error {
	if len(found) == 0 {
		presenter.Info("Nothing discovered.")
		return nil
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tDESCRIPTION\n", header)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, found[name].Description())
	}
	return w.Flush()
}
