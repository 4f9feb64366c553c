// Package main is the entry point for the repotree CLI.
//
// The application startup sequence:
//
// 1. Initialize the logging system
// 2. Resolve the repository root (flag, else walk up from the cwd)
// 3. Load configuration from disk
// 4. Dispatch to the selected subcommand; with no subcommand the
//    interactive TUI starts
//
// Subcommands cover one-shot inspection (tree, search, servers,
// templates, remote) and the long-running MCP server (mcp).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"repotree/internal/config"
	"repotree/internal/logging"
	"repotree/pkg/pathutil"
)

const version = "1.0.0"

// appContext carries the resolved environment into subcommands. It is
// populated once by the root command's PersistentPreRunE.
type appContext struct {
	repoRoot string
	config   *config.Config
	logger   *logging.AppLogger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		repoFlag   string
		configFlag string
	)
	app := &appContext{}

	root := &cobra.Command{
		Use:     "repotree",
		Short:   "Live view of repository metadata and MCP server configuration",
		Long: `repotree mirrors a repository's .github directory and its MCP server
configuration files as a live tree: the view follows file changes on disk,
shows git status, and is searchable across both trees.

Run without a subcommand to start the interactive TUI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.logger = logging.NewAppLogger()

			var (
				cfg *config.Config
				err error
			)
			if configFlag != "" {
				cfg, err = config.LoadFrom(configFlag)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.config = cfg

			start := repoFlag
			if start == "" {
				if start, err = os.Getwd(); err != nil {
					return fmt.Errorf("resolve working directory: %w", err)
				}
			}
			if abs, err := filepath.Abs(start); err == nil {
				start = abs
			}
			if root, ok := pathutil.FindRepoRoot(start); ok {
				app.repoRoot = root
			} else {
				app.repoRoot = start
			}
			app.logger.Debug("Repository root resolved", "root", app.repoRoot)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(app)
		},
	}

	root.PersistentFlags().StringVarP(&repoFlag, "repo", "C", "", "repository path (default: walk up from the current directory)")
	root.PersistentFlags().StringVar(&configFlag, "config", "", "path to a config file")

	root.AddCommand(
		newBrowseCmd(app),
		newTreeCmd(app),
		newSearchCmd(app),
		newServersCmd(app),
		newTemplatesCmd(app),
		newRemoteCmd(app),
		newMCPCmd(app),
	)
	return root
}
