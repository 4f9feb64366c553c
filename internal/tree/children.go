package tree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"repotree/internal/logging"
	"repotree/internal/watch"
)

// ChildrenManager keeps one directory's visible children in sync with disk
// with minimal churn. It owns the live children collection, zero or one
// primary watcher (active while the directory exists), and zero or one
// fallback watcher on the parent directory (active while the directory
// does not exist yet, waiting for its creation). At most one of the two is
// active at a time.
//
// Watcher callbacks arrive on background goroutines and are marshalled
// onto the dispatcher before touching shared state; bursts of create and
// remove events collapse into a single refresh behind the debouncer.
// Between an event and the debounce firing the collection may be stale by
// design, bounded by the debounce window.
type ChildrenManager struct {
	owner  *Node
	dir    string
	disp   *Dispatcher
	co     *Coordinator
	window time.Duration

	mu       sync.RWMutex
	children []*Node
	loaded   bool
	primary  *watch.DirWatcher
	fallback *watch.DirWatcher

	debounce *watch.Debouncer

	disposed    atomic.Bool
	disposeOnce sync.Once
}

func newChildrenManager(owner *Node, dir string, disp *Dispatcher, window time.Duration, co *Coordinator) *ChildrenManager {
	m := &ChildrenManager{
		owner:  owner,
		dir:    dir,
		disp:   disp,
		co:     co,
		window: window,
	}
	m.debounce = watch.NewDebouncer(window, func() {
		m.disp.Post(func() {
			if m.disposed.Load() {
				return
			}
			m.RefreshChildren()
		})
	})
	return m
}

// NewDirectoryRoot creates a live root node over dir. The node exists
// logically even when dir is absent; its manager watches the parent for
// creation and swaps to a primary watcher once the folder appears.
// Children are materialized on the first LoadChildren call, which must run
// on the dispatcher.
func NewDirectoryRoot(dir, label string, disp *Dispatcher, window time.Duration, co *Coordinator) *Node {
	n := newNode(KindRoot, dir, nil, CapChildren|CapInvoke|CapContextMenu, co)
	n.label = label
	n.manager = newChildrenManager(n, dir, disp, window, co)
	return n
}

// Dir returns the watched directory.
func (m *ChildrenManager) Dir() string { return m.dir }

// Loaded reports whether the children collection has been materialized.
func (m *ChildrenManager) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Children returns a point-in-time snapshot of the collection.
func (m *ChildrenManager) Children() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Node, len(m.children))
	copy(out, m.children)
	return out
}

// EnsureInitialized materializes the children collection and installs the
// appropriate watcher if that has not happened yet. Dispatcher-affine.
func (m *ChildrenManager) EnsureInitialized() {
	if m.disposed.Load() || m.Loaded() {
		return
	}
	m.RefreshChildren()
}

// RefreshChildren rebuilds the collection from a fresh directory listing:
// every current child is disposed (tearing down its own watchers and
// sub-managers), the collection is rebuilt if the directory still exists,
// and a single children announcement is raised whether or not anything
// changed. Dispatcher-affine.
func (m *ChildrenManager) RefreshChildren() {
	if m.disposed.Load() {
		return
	}

	m.mu.Lock()
	old := m.children
	m.children = nil
	m.mu.Unlock()

	for _, child := range old {
		child.Dispose()
	}

	exists := dirExists(m.dir)
	var kids []*Node
	if exists {
		kids = m.list()
	}

	m.mu.Lock()
	m.children = kids
	m.loaded = true
	m.mu.Unlock()

	m.owner.setMissing(!exists)
	m.ensureWatcher(exists)
	m.owner.announce(PropChildren)
}

// list builds sorted child nodes from a directory listing: folders first,
// then files, case-insensitive name order within each group. Enumeration
// failures yield an empty listing rather than an error.
func (m *ChildrenManager) list() []*Node {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		logging.Debug("Failed to list directory", "dir", m.dir, "error", err)
		return nil
	}

	var kids []*Node
	for _, e := range entries {
		if watch.IsTempName(e.Name()) {
			continue
		}
		kids = append(kids, m.newChild(e.Name(), e.IsDir()))
	}

	sort.SliceStable(kids, func(i, j int) bool { return kids[i].sortBefore(kids[j]) })
	return kids
}

func (m *ChildrenManager) newChild(name string, isDir bool) *Node {
	path := filepath.Join(m.dir, name)
	if isDir {
		child := newNode(KindFolder, path, m.owner, CapChildren|CapInvoke|CapContextMenu, m.co)
		child.manager = newChildrenManager(child, path, m.disp, m.window, m.co)
		return child
	}
	return newNode(KindFile, path, m.owner, CapInvoke|CapContextMenu, m.co)
}

// ensureWatcher installs the watcher matching the directory's current
// state and tears down the other one. Construction failures (unsupported
// or network paths) are swallowed; the manager then operates without live
// updates.
func (m *ChildrenManager) ensureWatcher(exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed.Load() {
		return
	}

	if exists {
		if m.primary != nil {
			return
		}
		if m.fallback != nil {
			m.fallback.Close()
			m.fallback = nil
		}
		w, err := watch.NewDirWatcher(m.dir, m.onEvent)
		if err != nil {
			logging.Debug("Could not watch directory", "dir", m.dir, "error", err)
			return
		}
		m.primary = w
		return
	}

	if m.fallback != nil {
		return
	}
	if m.primary != nil {
		m.primary.Close()
		m.primary = nil
	}

	parent := filepath.Dir(m.dir)
	target := filepath.Base(m.dir)
	// The fallback watcher cares about exactly one name: the missing
	// directory itself. The filter drops everything else, including the
	// default temp-name rules, because metadata folders like .github are
	// dot-prefixed and would otherwise be invisible.
	w, err := watch.NewDirWatcher(parent, m.onParentEvent, watch.WithFilter(func(name string) bool {
		return !strings.EqualFold(name, target)
	}))
	if err != nil {
		logging.Debug("Could not watch parent directory", "dir", parent, "error", err)
		return
	}
	m.fallback = w
}

// onEvent handles primary watcher callbacks on the watcher goroutine.
func (m *ChildrenManager) onEvent(ev watch.Event) {
	if m.disposed.Load() {
		return
	}

	switch ev.Op {
	case watch.OpRename:
		old, next := ev.OldPath, ev.Path
		m.disp.Post(func() {
			if m.disposed.Load() {
				return
			}
			m.reconcileRename(old, next)
		})
	case watch.OpCreate, watch.OpRemove:
		m.debounce.Trigger()
	case watch.OpWrite:
		// Content changes do not alter the listing.
	}
}

// onParentEvent handles fallback watcher callbacks: the only interesting
// event is the missing directory coming into existence.
func (m *ChildrenManager) onParentEvent(ev watch.Event) {
	if m.disposed.Load() {
		return
	}
	if ev.Op != watch.OpCreate && ev.Op != watch.OpRename {
		return
	}
	m.disp.Post(func() {
		if m.disposed.Load() {
			return
		}
		// Swaps fallback to primary and announces the now-present children.
		m.RefreshChildren()
	})
}

// reconcileRename applies a rename in place when the old path matches an
// existing child's identity: the node keeps its instance (so selection,
// expansion, and search trace-backs stay valid) and re-announces only the
// display properties derived from the path. Without a match the rename
// crossed into this folder from elsewhere, and a full refresh is the only
// safe answer. Dispatcher-affine.
func (m *ChildrenManager) reconcileRename(oldPath, newPath string) {
	m.mu.RLock()
	var matched *Node
	for _, child := range m.children {
		if child.Kind() == KindEntry {
			continue
		}
		if strings.EqualFold(child.Path(), oldPath) {
			matched = child
			break
		}
	}
	m.mu.RUnlock()

	if matched == nil {
		m.RefreshChildren()
		return
	}

	matched.setPath(newPath)
	if matched.manager != nil {
		matched.manager.rebase(newPath)
	}
	m.resort()
}

// rebase moves the manager to a new directory after an in-place rename of
// its owner. The listing itself is unchanged (the same entries now live
// under the new path), so children are rebased recursively instead of
// being rebuilt; any active watcher is reinstalled on the new location.
// Dispatcher-affine.
func (m *ChildrenManager) rebase(dir string) {
	if m.disposed.Load() {
		return
	}

	m.mu.Lock()
	m.dir = dir
	kids := make([]*Node, len(m.children))
	copy(kids, m.children)
	hadWatcher := m.primary != nil || m.fallback != nil
	if m.primary != nil {
		m.primary.Close()
		m.primary = nil
	}
	if m.fallback != nil {
		m.fallback.Close()
		m.fallback = nil
	}
	m.mu.Unlock()

	for _, child := range kids {
		childPath := filepath.Join(dir, filepath.Base(child.Path()))
		child.setPath(childPath)
		if child.manager != nil {
			child.manager.rebase(childPath)
		}
	}

	if hadWatcher {
		m.ensureWatcher(dirExists(dir))
	}
}

// resort restores the ordering invariant after an in-place rename. Node
// instances are reused, only their positions move; the owner announces
// children only when the order actually changed.
func (m *ChildrenManager) resort() {
	m.mu.Lock()
	before := make([]*Node, len(m.children))
	copy(before, m.children)
	sort.SliceStable(m.children, func(i, j int) bool { return m.children[i].sortBefore(m.children[j]) })
	changed := false
	for i := range before {
		if before[i] != m.children[i] {
			changed = true
			break
		}
	}
	m.mu.Unlock()

	if changed {
		m.owner.announce(PropChildren)
	}
}

// Dispose cancels any pending debounce, deactivates both possible
// watchers, disposes all current children, and clears the collection.
// Idempotent and safe to call from any goroutine.
func (m *ChildrenManager) Dispose() {
	m.disposeOnce.Do(func() {
		m.disposed.Store(true)
		m.debounce.Stop()

		m.mu.Lock()
		if m.primary != nil {
			m.primary.Close()
			m.primary = nil
		}
		if m.fallback != nil {
			m.fallback.Close()
			m.fallback = nil
		}
		kids := m.children
		m.children = nil
		m.mu.Unlock()

		for _, child := range kids {
			child.Dispose()
		}
	})
}

func dirExists(dir string) bool {
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
