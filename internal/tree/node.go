// Package tree keeps an in-memory node tree synchronized with an on-disk
// directory subtree. Folder nodes own a ChildrenManager that watches their
// backing directory and patches the children collection incrementally;
// every mutation happens on a single Dispatcher goroutine so observers see
// a consistent tree without locking.
package tree

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"repotree/internal/mcpconfig"
)

// Kind discriminates the node variants of the tree.
type Kind int

const (
	// KindRoot is the top node over a metadata directory or config family.
	KindRoot Kind = iota
	// KindFolder is a directory-backed node.
	KindFolder
	// KindFile is a file-backed node.
	KindFile
	// KindEntry is a leaf configuration entry inside a config file.
	KindEntry
)

// Capability tags what a node can do. The host queries capabilities
// through Has instead of type-asserting against marker interfaces.
type Capability uint32

const (
	CapChildren Capability = 1 << iota
	CapInvoke
	CapContextMenu
)

// Logical property names used for change announcements. Consumers
// re-render only the indicated facet.
const (
	PropText     = "text"
	PropTooltip  = "tooltip"
	PropIcon     = "icon"
	PropChildren = "children"
	PropMissing  = "missing"
)

// Coordinator routes node invocations to the host. One coordinator is
// constructed by the composition root and passed to nodes at construction;
// there is no process-wide singleton.
type Coordinator struct {
	// OpenFile is called when a file or folder node is invoked.
	OpenFile func(path string) error
	// OpenEntry is called when a config entry node is invoked.
	OpenEntry func(configPath, entry string) error
}

func (c *Coordinator) invoke(n *Node) error {
	if c == nil {
		return fmt.Errorf("node has no coordinator")
	}
	switch n.Kind() {
	case KindEntry:
		if c.OpenEntry == nil {
			return nil
		}
		return c.OpenEntry(n.Path(), n.EntryName())
	default:
		if c.OpenFile == nil {
			return nil
		}
		return c.OpenFile(n.Path())
	}
}

// Node is a single entry in the tree: root, folder, file, or leaf config
// entry. Identity is the backing path (for entries, the pair of config
// file path and entry name); rename matching compares paths
// case-insensitively. A node is owned exclusively by its parent's children
// collection; the parent pointer is a weak navigational link and never
// drives disposal.
type Node struct {
	kind       Kind
	caps       Capability
	entryName  string               // KindEntry only
	transport  mcpconfig.Transport  // KindEntry only
	label      string               // optional display override (roots)
	searchOnly bool
	co         *Coordinator
	parent     *Node

	// announcer, when set, receives every property announcement in the
	// subtree; children inherit it from their parent at construction.
	announcer func(n *Node, prop string)

	mu         sync.RWMutex
	path       string
	missing    bool
	onChanged  []func(prop string)
	onDisposed []func()

	disposed atomic.Bool

	manager *ChildrenManager // folder-backed live nodes only

	// fixed holds statically assigned children for nodes not backed by a
	// watched directory (config-file nodes and their entry leaves).
	fixed    []*Node
	fixedSet bool

	traceOnce sync.Once
	trace     []string
}

func newNode(kind Kind, path string, parent *Node, caps Capability, co *Coordinator) *Node {
	n := &Node{
		kind:   kind,
		caps:   caps,
		path:   path,
		parent: parent,
		co:     co,
	}
	if parent != nil {
		n.announcer = parent.announcer
	}
	return n
}

// NewEntryNode creates a leaf node for one parsed config entry. Identity
// is the (config file path, entry name) pair.
func NewEntryNode(configPath, entryName string, transport mcpconfig.Transport, parent *Node, co *Coordinator) *Node {
	n := newNode(KindEntry, configPath, parent, CapInvoke|CapContextMenu, co)
	n.entryName = entryName
	n.transport = transport
	return n
}

// NewSearchNode creates a lightweight node for ephemeral, non-mutating
// traversal: same identity and display contract as a live node, but no
// watcher and no children manager. Search nodes must never be inserted
// into a live children collection.
func NewSearchNode(kind Kind, path string, parent *Node) *Node {
	caps := CapInvoke
	if kind == KindFolder || kind == KindRoot {
		caps |= CapChildren
	}
	n := newNode(kind, path, parent, caps, nil)
	n.searchOnly = true
	return n
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// Has reports whether the node advertises the capability.
func (n *Node) Has(c Capability) bool { return n.caps&c != 0 }

// SearchOnly reports whether this is an ephemeral traversal node.
func (n *Node) SearchOnly() bool { return n.searchOnly }

// Path returns the node's identity path. For entries this is the config
// file the entry lives in.
func (n *Node) Path() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.path
}

// EntryName returns the entry name for KindEntry nodes, otherwise "".
func (n *Node) EntryName() string { return n.entryName }

// Transport returns the transport classification for KindEntry nodes.
func (n *Node) Transport() mcpconfig.Transport { return n.transport }

// Parent returns the weak parent link, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Text returns the display text.
func (n *Node) Text() string {
	if n.kind == KindEntry {
		return n.entryName
	}
	if n.label != "" {
		return n.label
	}
	return filepath.Base(n.Path())
}

// Tooltip returns the hover text: the backing path, annotated with the
// entry transport or a missing marker where relevant.
func (n *Node) Tooltip() string {
	path := n.Path()
	switch {
	case n.kind == KindEntry:
		return fmt.Sprintf("%s (%s) — %s", n.entryName, n.transport, path)
	case n.Missing():
		return path + " (missing)"
	default:
		return path
	}
}

// Icon returns the icon selector derived from the well-known name tables.
func (n *Node) Icon() string {
	switch n.kind {
	case KindEntry:
		if n.transport == mcpconfig.TransportRemote {
			return "server-remote"
		}
		return "server-local"
	case KindFile:
		return IconForFile(n.Text())
	default:
		if n.Missing() {
			return "folder-missing"
		}
		return IconForFolder(n.Text())
	}
}

// Missing reports whether the backing path is currently absent on disk.
// A missing node stays in the tree with a distinct visual state rather
// than being removed.
func (n *Node) Missing() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.missing
}

// Disposed reports whether the node has been disposed.
func (n *Node) Disposed() bool { return n.disposed.Load() }

// OnChanged subscribes to property-change announcements. Announcements
// fire on the dispatcher goroutine, keyed by logical property name.
func (n *Node) OnChanged(fn func(prop string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.disposed.Load() {
		return
	}
	n.onChanged = append(n.onChanged, fn)
}

// OnDisposed subscribes to the disposal notification, raised exactly once.
func (n *Node) OnDisposed(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.disposed.Load() {
		return
	}
	n.onDisposed = append(n.onDisposed, fn)
}

// Children returns a point-in-time snapshot of the children collection,
// or nil when children were never materialized.
func (n *Node) Children() []*Node {
	if n.manager != nil {
		return n.manager.Children()
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.fixedSet {
		return nil
	}
	out := make([]*Node, len(n.fixed))
	copy(out, n.fixed)
	return out
}

// ChildrenLoaded reports whether the live children collection has been
// materialized. Search uses this to decide between reusing the live
// collection and listing the directory directly.
func (n *Node) ChildrenLoaded() bool {
	if n.manager != nil {
		return n.manager.Loaded()
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.fixedSet
}

// setFixedChildren replaces the statically assigned children wholesale,
// disposing the previous generation. Used for the config-file tree, which
// is rebuilt rather than patched. Dispatcher-affine.
func (n *Node) setFixedChildren(children []*Node) {
	n.mu.Lock()
	old := n.fixed
	n.fixed = children
	n.fixedSet = true
	n.mu.Unlock()

	for _, c := range old {
		c.Dispose()
	}
	n.announce(PropChildren)
}

// LoadChildren materializes the children collection if it has not been
// loaded yet. Dispatcher-affine.
func (n *Node) LoadChildren() {
	if n.manager != nil {
		n.manager.EnsureInitialized()
	}
}

// Refresh rebuilds the children collection from disk. Dispatcher-affine.
func (n *Node) Refresh() {
	if n.manager != nil {
		n.manager.RefreshChildren()
	}
}

// Invoke routes a double-click/open action through the coordinator.
func (n *Node) Invoke() error {
	if !n.Has(CapInvoke) {
		return fmt.Errorf("node %q is not invokable", n.Text())
	}
	return n.co.invoke(n)
}

// ContextMenu returns the context menu entries for the node's kind.
func (n *Node) ContextMenu() []string {
	if !n.Has(CapContextMenu) {
		return nil
	}
	switch n.kind {
	case KindEntry:
		return []string{"Copy name", "Copy config path"}
	case KindFile:
		return []string{"Open", "Copy path"}
	default:
		return []string{"Open in file manager", "Copy path", "Refresh"}
	}
}

// Ancestry returns the display texts from the tree root down to this node,
// built lazily and memoized so repeated matches on the same node never
// rebuild the chain. Parent links are weak, so the chain is derived, never
// owned.
func (n *Node) Ancestry() []string {
	n.traceOnce.Do(func() {
		var chain []string
		for cur := n; cur != nil; cur = cur.parent {
			chain = append(chain, cur.Text())
		}
		// Reverse into root-first order.
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		n.trace = chain
	})
	return n.trace
}

// Dispose transitions the node to its terminal state: idempotent, one
// disposal notification, all event subscriptions detached synchronously
// before it returns. Disposing a folder node tears down its manager and
// thereby its watchers and children.
func (n *Node) Dispose() {
	if !n.disposed.CompareAndSwap(false, true) {
		return
	}

	n.mu.Lock()
	disposedHandlers := n.onDisposed
	n.onDisposed = nil
	n.onChanged = nil
	n.announcer = nil
	fixed := n.fixed
	n.fixed = nil
	n.mu.Unlock()

	if n.manager != nil {
		n.manager.Dispose()
	}
	for _, c := range fixed {
		c.Dispose()
	}

	for _, fn := range disposedHandlers {
		fn()
	}
}

// setPath updates the identity path in place after a rename and
// re-announces exactly the display-derived properties that depend on it.
// The node instance is preserved so externally held references stay valid.
// Dispatcher-affine.
func (n *Node) setPath(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()

	n.announce(PropText)
	n.announce(PropTooltip)
	n.announce(PropIcon)
}

// setMissing flips the missing display state. Dispatcher-affine.
func (n *Node) setMissing(missing bool) {
	n.mu.Lock()
	changed := n.missing != missing
	n.missing = missing
	n.mu.Unlock()

	if changed {
		n.announce(PropMissing)
		n.announce(PropIcon)
		n.announce(PropTooltip)
	}
}

// announce raises a property-changed notification. Handlers run inline on
// the dispatcher goroutine; a disposed node announces nothing.
func (n *Node) announce(prop string) {
	if n.disposed.Load() {
		return
	}
	n.mu.RLock()
	handlers := make([]func(string), len(n.onChanged))
	copy(handlers, n.onChanged)
	announcer := n.announcer
	n.mu.RUnlock()

	for _, fn := range handlers {
		fn(prop)
	}
	if announcer != nil {
		announcer(n, prop)
	}
}

// sortBefore orders folders before files; within a class, names compare
// case-insensitively.
func (n *Node) sortBefore(other *Node) bool {
	nFolder := n.kind == KindFolder || n.kind == KindRoot
	oFolder := other.kind == KindFolder || other.kind == KindRoot
	if nFolder != oFolder {
		return nFolder
	}
	a, b := strings.ToLower(n.Text()), strings.ToLower(other.Text())
	if a != b {
		return a < b
	}
	return n.Text() < other.Text()
}
