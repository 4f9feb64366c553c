package tree

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow = 50 * time.Millisecond

// newTestRoot builds a loaded directory root over dir with a short debounce
// window, wired to a dispatcher that is torn down with the test.
func newTestRoot(t *testing.T, dir string) (*Node, *Dispatcher) {
	t.Helper()
	disp := NewDispatcher()
	root := NewDirectoryRoot(dir, filepath.Base(dir), disp, testWindow, &Coordinator{})
	disp.Call(root.LoadChildren)

	t.Cleanup(func() {
		disp.Call(root.Dispose)
		disp.Close()
	})
	return root, disp
}

func childTexts(n *Node) []string {
	kids := n.Children()
	out := make([]string, len(kids))
	for i, c := range kids {
		out[i] = c.Text()
	}
	return out
}

func TestInitialListingOrdersFoldersBeforeFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Zeta"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alpha"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	root, _ := newTestRoot(t, dir)

	assert.Equal(t, []string{"alpha", "Zeta", "a.txt", "B.txt"}, childTexts(root))

	kids := root.Children()
	assert.Equal(t, KindFolder, kids[0].Kind())
	assert.Equal(t, KindFile, kids[2].Kind())
}

func TestInitialListingSkipsTempNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"~autosave.yml", ".hidden", "save.tmp", "keep.yml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	root, _ := newTestRoot(t, dir)
	assert.Equal(t, []string{"keep.yml"}, childTexts(root))
}

func TestRefreshIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	root, disp := newTestRoot(t, dir)

	paths := func() []string {
		var out []string
		for _, c := range root.Children() {
			out = append(out, c.Path())
		}
		return out
	}

	first := paths()
	disp.Call(root.Refresh)
	second := paths()
	disp.Call(root.Refresh)
	third := paths()

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestRefreshAnnouncesChildrenEvenWithoutChange(t *testing.T) {
	dir := t.TempDir()
	root, disp := newTestRoot(t, dir)

	var mu sync.Mutex
	count := 0
	root.OnChanged(func(prop string) {
		if prop == PropChildren {
			mu.Lock()
			count++
			mu.Unlock()
		}
	})

	disp.Call(root.Refresh)
	disp.Call(root.Refresh)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestRenamePreservesNodeInstance(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))

	root, _ := newTestRoot(t, dir)

	require.Equal(t, []string{"a", "b.txt"}, childTexts(root))
	var before *Node
	for _, c := range root.Children() {
		if c.Text() == "b.txt" {
			before = c
		}
	}
	require.NotNil(t, before)

	require.NoError(t, os.Rename(filepath.Join(dir, "b.txt"), filepath.Join(dir, "c.txt")))

	require.Eventually(t, func() bool {
		for _, c := range root.Children() {
			if c.Text() == "c.txt" {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)

	var after *Node
	for _, c := range root.Children() {
		if c.Text() == "c.txt" {
			after = c
		}
	}
	require.NotNil(t, after)
	assert.Same(t, before, after, "rename must mutate the node in place")
	assert.Equal(t, filepath.Join(dir, "c.txt"), after.Path())
	assert.False(t, after.Disposed())
	assert.Equal(t, []string{"a", "c.txt"}, childTexts(root))
}

func TestRenameFolderRebasesLoadedSubtree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "old", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old", "a.yml"), []byte("x"), 0o644))

	root, disp := newTestRoot(t, dir)

	var folder *Node
	for _, c := range root.Children() {
		if c.Text() == "old" {
			folder = c
		}
	}
	require.NotNil(t, folder)
	disp.Call(folder.LoadChildren)
	require.Equal(t, []string{"nested", "a.yml"}, childTexts(folder))

	var nested *Node
	for _, c := range folder.Children() {
		if c.Text() == "nested" {
			nested = c
		}
	}
	require.NotNil(t, nested)
	disp.Call(nested.LoadChildren)

	require.NoError(t, os.Rename(filepath.Join(dir, "old"), filepath.Join(dir, "new")))

	require.Eventually(t, func() bool {
		return folder.Text() == "new"
	}, 3*time.Second, 20*time.Millisecond)

	// The instance survives and its subtree follows the new location.
	assert.Equal(t, filepath.Join(dir, "new"), folder.Path())
	assert.False(t, folder.Missing())
	assert.Equal(t, []string{"nested", "a.yml"}, childTexts(folder))
	assert.Equal(t, filepath.Join(dir, "new", "nested"), nested.Path())
	assert.False(t, nested.Disposed())

	// A refresh lists the renamed directory, not the vanished old one.
	disp.Call(folder.Refresh)
	assert.False(t, folder.Missing())
	assert.Equal(t, []string{"nested", "a.yml"}, childTexts(folder))

	// The folder's watcher follows the rename too.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new", "b.yml"), []byte("y"), 0o644))
	require.Eventually(t, func() bool {
		texts := childTexts(folder)
		return len(texts) == 3 && texts[2] == "b.yml"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRenameRestoresOrderingInvariant(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "m.txt"), []byte("x"), 0o644))

	root, _ := newTestRoot(t, dir)
	require.Equal(t, []string{"a.txt", "m.txt"}, childTexts(root))

	require.NoError(t, os.Rename(filepath.Join(dir, "a.txt"), filepath.Join(dir, "z.txt")))

	require.Eventually(t, func() bool {
		texts := childTexts(root)
		return len(texts) == 2 && texts[0] == "m.txt" && texts[1] == "z.txt"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestDebounceCoalescesEventBurst(t *testing.T) {
	dir := t.TempDir()
	root, _ := newTestRoot(t, dir)

	var mu sync.Mutex
	refreshes := 0
	root.OnChanged(func(prop string) {
		if prop == PropChildren {
			mu.Lock()
			refreshes++
			mu.Unlock()
		}
	})

	// A burst of creates well inside the quiescence window.
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool {
		return len(root.Children()) == 5
	}, 3*time.Second, 20*time.Millisecond)

	// Allow any straggling timer to fire, then check the burst collapsed.
	time.Sleep(4 * testWindow)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, refreshes, "burst must collapse into a single refresh")
}

func TestMissingDirectoryUsesParentFallback(t *testing.T) {
	parent := t.TempDir()
	target := filepath.Join(parent, ".github")

	root, _ := newTestRoot(t, target)

	assert.True(t, root.Missing())
	assert.Empty(t, root.Children())

	m := root.manager
	m.mu.RLock()
	assert.NotNil(t, m.fallback)
	assert.Nil(t, m.primary)
	m.mu.RUnlock()

	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "FUNDING.yml"), []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		return !root.Missing() && len(root.Children()) > 0
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, []string{"FUNDING.yml"}, childTexts(root))
	m.mu.RLock()
	assert.NotNil(t, m.primary)
	assert.Nil(t, m.fallback)
	m.mu.RUnlock()
}

func TestAtMostOneWatcherActive(t *testing.T) {
	dir := t.TempDir()
	root, _ := newTestRoot(t, dir)

	m := root.manager
	m.mu.RLock()
	active := 0
	if m.primary != nil {
		active++
	}
	if m.fallback != nil {
		active++
	}
	m.mu.RUnlock()
	assert.Equal(t, 1, active)
}

func TestDisposeReleasesWatchersAndChildren(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	disp := NewDispatcher()
	defer disp.Close()
	root := NewDirectoryRoot(dir, "root", disp, testWindow, &Coordinator{})
	disp.Call(root.LoadChildren)

	kids := root.Children()
	require.Len(t, kids, 1)

	disp.Call(root.Dispose)
	disp.Call(root.Dispose) // idempotent

	assert.True(t, root.Disposed())
	assert.True(t, kids[0].Disposed(), "disposal propagates to children")

	m := root.manager
	m.mu.RLock()
	assert.Nil(t, m.primary)
	assert.Nil(t, m.fallback)
	m.mu.RUnlock()
	assert.Empty(t, root.Children())
}

func TestEventsAfterDisposeAreIgnored(t *testing.T) {
	dir := t.TempDir()
	disp := NewDispatcher()
	defer disp.Close()
	root := NewDirectoryRoot(dir, "root", disp, testWindow, &Coordinator{})
	disp.Call(root.LoadChildren)
	disp.Call(root.Dispose)

	// Mutations after disposal must not resurrect the collection.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "late.txt"), []byte("x"), 0o644))
	time.Sleep(4 * testWindow)
	assert.Empty(t, root.Children())
}

func TestNestedFolderLoadsLazily(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "workflows")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "ci.yml"), []byte("x"), 0o644))

	root, disp := newTestRoot(t, dir)

	folder := root.Children()[0]
	assert.False(t, folder.ChildrenLoaded(), "children materialize on demand")

	disp.Call(folder.LoadChildren)
	assert.True(t, folder.ChildrenLoaded())
	assert.Equal(t, []string{"ci.yml"}, childTexts(folder))
}
