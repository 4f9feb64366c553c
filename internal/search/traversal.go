// Package search implements a read-only, breadth-first traversal over the
// node tree. It runs concurrently with the watcher pipeline and never
// mutates live children collections: subtrees that were never expanded in
// the UI are enumerated straight off disk into ephemeral search nodes.
package search

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"repotree/internal/logging"
	"repotree/internal/tree"
	"repotree/internal/watch"
)

// DefaultLimit caps a single traversal's result count when Options does
// not say otherwise.
const DefaultLimit = 200

// Options tunes one traversal.
type Options struct {
	// Limit caps the number of emitted results; zero means DefaultLimit.
	Limit int
	// Workers bounds per-level parallelism; zero means the number of
	// available CPUs.
	Workers int
	// SkipDirs lists directory names never descended into, compared
	// case-insensitively.
	SkipDirs []string
}

// Result is one matched node together with its memoized ancestry chain,
// root-first, so callers can show the full path without re-querying.
type Result struct {
	Node  *tree.Node
	Trace []string
}

// Find collects every match for query under roots, up to the limit.
func Find(ctx context.Context, roots []*tree.Node, query string, opts Options) ([]Result, error) {
	var out []Result
	err := Stream(ctx, roots, query, opts, func(batch []Result) {
		out = append(out, batch...)
	})
	return out, err
}

// Stream walks the tree breadth-first and hands matches to emit in
// per-level batches: order within a batch is unspecified, but shallower
// matches are always emitted before deeper ones. The walk stops at the
// result cap or on context cancellation, whichever comes first.
//
// Each level is evaluated in parallel. Workers only read node identity and
// display text, both stable once a node is constructed, so no coordination
// with the mutating side is needed; a result may reflect a since-superseded
// listing, which callers accept as eventually consistent.
func Stream(ctx context.Context, roots []*tree.Node, query string, opts Options, emit func(batch []Result)) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	skip := make(map[string]struct{}, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		skip[strings.ToLower(d)] = struct{}{}
	}

	q := strings.ToLower(query)
	total := 0

	flush := func(batch []Result) bool {
		if remaining := limit - total; len(batch) > remaining {
			batch = batch[:remaining]
		}
		if len(batch) > 0 {
			total += len(batch)
			emit(batch)
		}
		return total < limit
	}

	// The roots themselves form level zero.
	var rootMatches []Result
	var current []*tree.Node
	for _, r := range roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if matches(r, q) {
			rootMatches = append(rootMatches, Result{Node: r, Trace: r.Ancestry()})
		}
		current = append(current, expand(r, skip)...)
	}
	if !flush(rootMatches) {
		return nil
	}

	for len(current) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		var mu sync.Mutex
		var levelMatches []Result
		var next []*tree.Node

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, n := range current {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				kids := expand(n, skip)
				matched := matches(n, q)

				mu.Lock()
				defer mu.Unlock()
				if matched {
					levelMatches = append(levelMatches, Result{Node: n, Trace: n.Ancestry()})
				}
				next = append(next, kids...)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if !flush(levelMatches) {
			return nil
		}
		current = next
	}
	return nil
}

// Expand returns the nodes one level below n without mutating the live
// tree, applying the same skip rules a traversal would.
func Expand(n *tree.Node, skipDirs []string) []*tree.Node {
	skip := make(map[string]struct{}, len(skipDirs))
	for _, d := range skipDirs {
		skip[strings.ToLower(d)] = struct{}{}
	}
	return expand(n, skip)
}

func matches(n *tree.Node, loweredQuery string) bool {
	return strings.Contains(strings.ToLower(n.Text()), loweredQuery)
}

// expand returns the nodes to visit below n. A materialized live
// collection is reused as-is; otherwise the directory is listed directly
// into search-only nodes so the live tree is never touched. Listing
// failures yield an empty subtree.
func expand(n *tree.Node, skip map[string]struct{}) []*tree.Node {
	if !n.Has(tree.CapChildren) {
		return nil
	}

	if !n.SearchOnly() && n.ChildrenLoaded() {
		var out []*tree.Node
		for _, k := range n.Children() {
			if skipped(k.Kind() == tree.KindFolder, k.Text(), skip) {
				continue
			}
			out = append(out, k)
		}
		return out
	}

	entries, err := os.ReadDir(n.Path())
	if err != nil {
		logging.Debug("Search could not list directory", "dir", n.Path(), "error", err)
		return nil
	}

	var out []*tree.Node
	for _, e := range entries {
		if watch.IsTempName(e.Name()) {
			continue
		}
		if skipped(e.IsDir(), e.Name(), skip) {
			continue
		}
		kind := tree.KindFile
		if e.IsDir() {
			kind = tree.KindFolder
		}
		out = append(out, tree.NewSearchNode(kind, filepath.Join(n.Path(), e.Name()), n))
	}
	return out
}

func skipped(isDir bool, name string, skip map[string]struct{}) bool {
	if !isDir {
		return false
	}
	_, ok := skip[strings.ToLower(name)]
	return ok
}
