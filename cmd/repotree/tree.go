package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repotree/internal/search"
	"repotree/internal/tree"
)

func newTreeCmd(app *appContext) *cobra.Command {
	var (
		depth    int
		rootName string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the metadata tree",
		Long: `Print the .github tree, the MCP configuration tree, or both as an
indented outline. Directories are expanded up to --depth levels.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := tree.NewController(app.repoRoot, app.config, &tree.Coordinator{})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			var roots []*tree.Node
			switch rootName {
			case "github":
				roots = []*tree.Node{ctrl.GitHubRoot()}
			case "servers":
				roots = []*tree.Node{ctrl.ServersRoot()}
			case "all":
				roots = ctrl.Roots()
			default:
				return fmt.Errorf("unknown root %q, want github, servers, or all", rootName)
			}

			var b strings.Builder
			for _, r := range roots {
				printNode(&b, r, 0, depth, app.config.SkipPatterns)
			}
			fmt.Fprint(cmd.OutOrStdout(), b.String())
			return nil
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 4, "maximum depth to expand directories")
	cmd.Flags().StringVarP(&rootName, "root", "r", "all", "which tree to print: github, servers, or all")
	return cmd
}

func printNode(b *strings.Builder, n *tree.Node, level, maxDepth int, skipDirs []string) {
	b.WriteString(strings.Repeat("  ", level))
	b.WriteString(n.Text())
	if n.Kind() == tree.KindEntry {
		fmt.Fprintf(b, " [%s]", n.Transport())
	}
	if n.Missing() {
		b.WriteString(" (missing)")
	}
	b.WriteString("\n")

	if level >= maxDepth || !n.Has(tree.CapChildren) {
		return
	}
	for _, child := range search.Expand(n, skipDirs) {
		printNode(b, child, level+1, maxDepth, skipDirs)
	}
}
