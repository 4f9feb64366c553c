package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"repotree/internal/tui"
)

func newBrowseCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Start the interactive TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(app)
		},
	}
}

func runBrowse(app *appContext) error {
	model := tui.NewMainModel(app.repoRoot, app.config, app.logger)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
