package tree

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"repotree/internal/config"
	"repotree/internal/logging"
	"repotree/internal/mcpconfig"
	"repotree/internal/watch"
	"repotree/pkg/pathutil"
)

// Controller is the per-workspace composition root of the tree: it owns
// the dispatcher, the .github directory root, and the secondary
// config-file tree, and exposes the stable entry points used by the UI and
// by search.
//
// The secondary tree is rebuilt wholesale, behind a coarser debounce
// window, whenever the top-level watcher sees a relevant change; the
// directory root patches itself incrementally through its own managers.
type Controller struct {
	repoRoot string
	cfg      *config.Config
	co       *Coordinator
	disp     *Dispatcher

	githubRoot  *Node
	serversRoot *Node

	rootWatcher *watch.DirWatcher
	debounce    *watch.Debouncer

	// subWatchers covers config subdirectories (.vscode, .cursor) whose
	// mcp.json edits are invisible to the non-recursive root watcher.
	// Keyed by directory path; maintained on every config rebuild.
	subWatchers map[string]*watch.DirWatcher

	mu          sync.Mutex
	subscribers []func(n *Node, prop string)

	closed atomic.Bool
}

// rootWatchNames are the repo-root entries whose changes are relevant to
// the controller: the metadata folder and the config files/folders the
// secondary tree is built from.
var rootWatchNames = []string{
	pathutil.GitHubDirName,
	".mcp.json",
	".vscode",
	".cursor",
}

// NewController builds the tree for the repository rooted at repoRoot and
// performs the initial load. Close must be called to release watchers and
// the dispatcher.
func NewController(repoRoot string, cfg *config.Config, co *Coordinator) (*Controller, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve repository root: %w", err)
	}
	if !dirExists(abs) {
		return nil, fmt.Errorf("repository root does not exist: %s", abs)
	}

	c := &Controller{
		repoRoot:    abs,
		cfg:         cfg,
		co:          co,
		disp:        NewDispatcher(),
		subWatchers: make(map[string]*watch.DirWatcher),
	}

	githubDir := filepath.Join(abs, pathutil.GitHubDirName)
	c.githubRoot = NewDirectoryRoot(githubDir, pathutil.GitHubDirName, c.disp, cfg.ChildDebounce, co)
	c.githubRoot.announcer = c.fanout

	c.serversRoot = newNode(KindRoot, abs, nil, CapChildren, co)
	c.serversRoot.label = "MCP Servers"
	c.serversRoot.announcer = c.fanout

	c.debounce = watch.NewDebouncer(cfg.RootDebounce, func() {
		c.disp.Post(func() {
			if c.closed.Load() {
				return
			}
			c.rebuildConfigTree()
		})
	})

	c.disp.Call(func() {
		c.githubRoot.LoadChildren()
		c.rebuildConfigTree()
	})

	c.installRootWatcher()

	logging.Debug("Tree controller started", "root", abs)
	return c, nil
}

// GitHubRoot returns the node over the repository's .github directory.
func (c *Controller) GitHubRoot() *Node { return c.githubRoot }

// ServersRoot returns the root of the secondary, config-file-based tree.
func (c *Controller) ServersRoot() *Node { return c.serversRoot }

// Roots returns the search entry points in display order.
func (c *Controller) Roots() []*Node {
	return []*Node{c.githubRoot, c.serversRoot}
}

// Dispatcher returns the controller's dispatch loop, for callers that need
// to run tree-mutating work (expansion, refresh) with the right affinity.
func (c *Controller) Dispatcher() *Dispatcher { return c.disp }

// Subscribe registers fn to receive every property announcement in the
// tree. Announcements fire on the dispatcher goroutine.
func (c *Controller) Subscribe(fn func(n *Node, prop string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) fanout(n *Node, prop string) {
	c.mu.Lock()
	subs := make([]func(*Node, string), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(n, prop)
	}
}

// installRootWatcher watches the repository root for the handful of names
// the controller cares about. Failure to watch degrades to a tree without
// live top-level updates.
func (c *Controller) installRootWatcher() {
	w, err := watch.NewDirWatcher(c.repoRoot, c.onRootEvent, watch.WithFilter(func(name string) bool {
		for _, known := range rootWatchNames {
			if strings.EqualFold(name, known) {
				return false
			}
		}
		return true
	}))
	if err != nil {
		logging.Debug("Could not watch repository root", "root", c.repoRoot, "error", err)
		return
	}
	c.rootWatcher = w
}

// onRootEvent runs on the watcher goroutine.
func (c *Controller) onRootEvent(ev watch.Event) {
	if c.closed.Load() {
		return
	}

	base := strings.ToLower(filepath.Base(ev.Path))
	if base == pathutil.GitHubDirName {
		// The directory root's own watcher goes silent when its directory
		// is deleted out from under it; the controller is the one that
		// notices and refreshes.
		c.disp.Post(func() {
			if c.closed.Load() {
				return
			}
			c.githubRoot.Refresh()
		})
		if ev.Op != watch.OpRename {
			return
		}
		// A rename of .github itself also changes which config files are
		// visible; fall through to the config rebuild.
	}

	c.debounce.Trigger()
}

// rebuildConfigTree replaces the secondary tree with freshly enumerated
// config locations. Locations are value objects: built, displayed,
// discarded. Dispatcher-affine.
func (c *Controller) rebuildConfigTree() {
	locations := mcpconfig.EnumerateLocations(c.repoRoot)

	var files []*Node
	for _, loc := range locations {
		if !loc.Exists {
			continue
		}
		files = append(files, c.newConfigFileNode(loc))
	}

	c.serversRoot.setFixedChildren(files)
	c.ensureSubWatchers()
	logging.Debug("Config tree rebuilt", "files", len(files))
}

// ensureSubWatchers keeps one watcher per existing config subdirectory,
// scoped to its mcp.json. Dispatcher-affine.
func (c *Controller) ensureSubWatchers() {
	for _, sub := range []string{".vscode", ".cursor"} {
		dir := filepath.Join(c.repoRoot, sub)
		if _, ok := c.subWatchers[dir]; ok {
			if dirExists(dir) {
				continue
			}
			c.subWatchers[dir].Close()
			delete(c.subWatchers, dir)
			continue
		}
		if !dirExists(dir) {
			continue
		}

		w, err := watch.NewDirWatcher(dir, func(watch.Event) {
			if c.closed.Load() {
				return
			}
			c.debounce.Trigger()
		}, watch.WithFilter(func(name string) bool {
			return !strings.EqualFold(name, "mcp.json")
		}))
		if err != nil {
			logging.Debug("Could not watch config directory", "dir", dir, "error", err)
			continue
		}
		c.subWatchers[dir] = w
	}
}

func (c *Controller) newConfigFileNode(loc mcpconfig.Location) *Node {
	caps := CapInvoke | CapContextMenu
	if len(loc.Entries) > 0 {
		caps |= CapChildren
	}
	n := newNode(KindFile, loc.Path, c.serversRoot, caps, c.co)
	n.label = fmt.Sprintf("%s — %s", loc.Label, filepath.Base(loc.Path))

	entries := make([]*Node, 0, len(loc.Entries))
	for _, e := range loc.Entries {
		entries = append(entries, NewEntryNode(loc.Path, e.Name, e.Transport, n, c.co))
	}
	n.fixed = entries
	n.fixedSet = true
	return n
}

// Close tears the controller down: watchers first so no new events arrive,
// then the debounce, then the nodes, then the dispatcher. Idempotent.
func (c *Controller) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	if c.rootWatcher != nil {
		c.rootWatcher.Close()
	}
	c.debounce.Stop()

	c.disp.Call(func() {
		for dir, w := range c.subWatchers {
			w.Close()
			delete(c.subWatchers, dir)
		}
		c.githubRoot.Dispose()
		c.serversRoot.Dispose()
	})
	c.disp.Close()
}
