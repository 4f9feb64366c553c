package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"repotree/internal/search"
	"repotree/internal/tree"
)

func newSearchCmd(app *appContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search nodes by name",
		Long: `Search both trees for nodes whose name contains the query,
case-insensitively. Results are printed shallowest first as full paths
from the tree root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := tree.NewController(app.repoRoot, app.config, &tree.Coordinator{})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			query := strings.Join(args, " ")
			results, err := search.Find(ctx, ctrl.Roots(), query, search.Options{
				Limit:    limit,
				Workers:  app.config.SearchWorkers,
				SkipDirs: app.config.SkipPatterns,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no matches for %q\n", query)
				return nil
			}
			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(r.Trace, " / "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "maximum number of results")
	return cmd
}
