package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repotree/internal/mcpconfig"
)

func newServersCmd(app *appContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List configured MCP servers",
		Long: `List the MCP servers configured for this repository, grouped by
config file location. Only existing config files are shown unless
--all is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, loc := range mcpconfig.EnumerateLocations(app.repoRoot) {
				if !loc.Exists && !all {
					continue
				}
				fmt.Fprintf(out, "%s (%s)", loc.Label, loc.Path)
				if !loc.Exists {
					fmt.Fprint(out, " [absent]")
				}
				fmt.Fprintln(out)
				for _, entry := range loc.Entries {
					fmt.Fprintf(out, "  %s [%s]\n", entry.Name, entry.Transport)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include config locations that do not exist")
	return cmd
}
