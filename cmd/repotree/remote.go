package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repotree/internal/gitinfo"
)

func newRemoteCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "Show the origin remote of the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := gitinfo.NewService(app.repoRoot, 0)
			remote, err := svc.Remote()
			if err != nil {
				return fmt.Errorf("resolve origin remote: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "host:  %s\n", remote.Host)
			fmt.Fprintf(out, "owner: %s\n", remote.Owner)
			fmt.Fprintf(out, "repo:  %s\n", remote.Repo)
			fmt.Fprintf(out, "url:   %s\n", remote.URL)
			return nil
		},
	}
}
