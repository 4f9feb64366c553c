package main

import (
	"github.com/spf13/cobra"

	"repotree/internal/mcp"
)

func newMCPCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the repository tree over MCP on stdio",
		Long: `Start an MCP server on stdin/stdout exposing the repository tree to
MCP clients: listing and searching both trees, enumerating configured
servers and issue templates, and resolving the git remote.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.logger.Info("Starting MCP server", "repoRoot", app.repoRoot)
			return mcp.NewServer(app.repoRoot, app.config, app.logger).Start()
		},
	}
}
