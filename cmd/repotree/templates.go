package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repotree/internal/templates"
)

func newTemplatesCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List issue templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			tpls, err := templates.Discover(app.repoRoot)
			if err != nil {
				return err
			}
			if len(tpls) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no issue templates found")
				return nil
			}
			for _, tpl := range tpls {
				line := fmt.Sprintf("%s (%s)", tpl.Name, tpl.FileName)
				if tpl.About != "" {
					line += " - " + tpl.About
				}
				if len(tpl.Labels) > 0 {
					line += " [" + strings.Join(tpl.Labels, ", ") + "]"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.AddCommand(newTemplatesNewCmd(app))
	return cmd
}

func newTemplatesNewCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new <template-file> <file-name>",
		Short: "Create a new file from an issue template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tpls, err := templates.Discover(app.repoRoot)
			if err != nil {
				return err
			}
			for _, tpl := range tpls {
				if tpl.FileName != args[0] {
					continue
				}
				dest, err := templates.Instantiate(app.repoRoot, tpl, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dest)
				return nil
			}
			return fmt.Errorf("no template named %q, run 'repotree templates' to list them", args[0])
		},
	}
}
