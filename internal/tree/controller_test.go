package tree

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repotree/internal/config"
	"repotree/internal/mcpconfig"
)

const ctrlWait = 3 * time.Second

// newTestController builds a controller over a fresh temp repository with
// fast debounce windows. HOME is pointed at an empty directory so the
// user-level config file on the host never leaks into the enumeration.
func newTestController(t *testing.T) (*Controller, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ChildDebounce = 30 * time.Millisecond
	cfg.RootDebounce = 40 * time.Millisecond

	c, err := NewController(root, &cfg, &Coordinator{})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const twoServerConfig = `{
  "servers": {
    "alpha": { "url": "https://example.com/mcp" },
    "beta": { "command": "npx", "args": ["-y", "beta"] }
  }
}`

func TestNewControllerRejectsMissingRoot(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewController(filepath.Join(t.TempDir(), "nope"), &cfg, &Coordinator{})
	assert.Error(t, err)
}

func TestInitialLoadPopulatesBothRoots(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".github", "workflows"), 0o755))
	writeFile(t, filepath.Join(root, ".github", "FUNDING.yml"), "github: [octocat]\n")
	writeFile(t, filepath.Join(root, ".mcp.json"), twoServerConfig)

	cfg := config.DefaultConfig()
	c, err := NewController(root, &cfg, &Coordinator{})
	require.NoError(t, err)
	defer c.Close()

	gh := c.GitHubRoot()
	assert.False(t, gh.Missing())
	kids := gh.Children()
	require.Len(t, kids, 2)
	assert.Equal(t, "workflows", kids[0].Text())
	assert.Equal(t, "FUNDING.yml", kids[1].Text())

	files := c.ServersRoot().Children()
	require.Len(t, files, 1)
	assert.Equal(t, "Repository — .mcp.json", files[0].Text())

	entries := files[0].Children()
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].EntryName())
	assert.Equal(t, mcpconfig.TransportRemote, entries[0].Transport())
	assert.Equal(t, "beta", entries[1].EntryName())
	assert.Equal(t, mcpconfig.TransportStdio, entries[1].Transport())
}

func TestConfigTreeFollowsFileLifecycle(t *testing.T) {
	c, root := newTestController(t)

	assert.Empty(t, c.ServersRoot().Children())

	path := filepath.Join(root, ".mcp.json")
	writeFile(t, path, twoServerConfig)
	assert.Eventually(t, func() bool {
		return len(c.ServersRoot().Children()) == 1
	}, ctrlWait, 10*time.Millisecond, "config file should appear in the tree")

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		return len(c.ServersRoot().Children()) == 0
	}, ctrlWait, 10*time.Millisecond, "config file removal should empty the tree")
}

func TestEditorConfigDirectoriesAreWatched(t *testing.T) {
	c, root := newTestController(t)

	writeFile(t, filepath.Join(root, ".vscode", "mcp.json"), `{"servers":{"one":{"command":"go"}}}`)
	assert.Eventually(t, func() bool {
		files := c.ServersRoot().Children()
		return len(files) == 1 && files[0].Text() == "VS Code — mcp.json"
	}, ctrlWait, 10*time.Millisecond)

	// Editing the file inside the subdirectory is invisible to the
	// non-recursive root watcher; the per-directory watcher must carry it.
	writeFile(t, filepath.Join(root, ".vscode", "mcp.json"), twoServerConfig)
	assert.Eventually(t, func() bool {
		files := c.ServersRoot().Children()
		return len(files) == 1 && len(files[0].Children()) == 2
	}, ctrlWait, 10*time.Millisecond)
}

func TestCursorConfigUsesItsOwnObjectKey(t *testing.T) {
	c, root := newTestController(t)

	writeFile(t, filepath.Join(root, ".cursor", "mcp.json"),
		`{"mcpServers":{"tracker":{"url":"https://tracker.dev/mcp"}}}`)
	assert.Eventually(t, func() bool {
		files := c.ServersRoot().Children()
		if len(files) != 1 {
			return false
		}
		entries := files[0].Children()
		return len(entries) == 1 && entries[0].EntryName() == "tracker" &&
			entries[0].Transport() == mcpconfig.TransportRemote
	}, ctrlWait, 10*time.Millisecond)
}

func TestSubscribeReceivesTreeAnnouncements(t *testing.T) {
	c, root := newTestController(t)

	var mu sync.Mutex
	var seen []string
	c.Subscribe(func(n *Node, prop string) {
		mu.Lock()
		defer mu.Unlock()
		if n == c.ServersRoot() {
			seen = append(seen, prop)
		}
	})

	writeFile(t, filepath.Join(root, ".mcp.json"), twoServerConfig)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range seen {
			if p == PropChildren {
				return true
			}
		}
		return false
	}, ctrlWait, 10*time.Millisecond)
}

func TestGitHubDirectoryAppearingLater(t *testing.T) {
	c, root := newTestController(t)

	assert.True(t, c.GitHubRoot().Missing())

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".github"), 0o755))
	writeFile(t, filepath.Join(root, ".github", "SECURITY.md"), "# Security\n")
	assert.Eventually(t, func() bool {
		return !c.GitHubRoot().Missing() && len(c.GitHubRoot().Children()) == 1
	}, ctrlWait, 10*time.Millisecond)
}

func TestCloseIsIdempotentAndStopsUpdates(t *testing.T) {
	c, root := newTestController(t)

	c.Close()
	c.Close()

	assert.True(t, c.GitHubRoot().Disposed())
	assert.True(t, c.ServersRoot().Disposed())

	// Events after Close must not panic or mutate the disposed tree.
	writeFile(t, filepath.Join(root, ".mcp.json"), twoServerConfig)
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, c.ServersRoot().Children())
}

func TestRootsOrder(t *testing.T) {
	c, _ := newTestController(t)

	roots := c.Roots()
	require.Len(t, roots, 2)
	assert.Same(t, c.GitHubRoot(), roots[0])
	assert.Same(t, c.ServersRoot(), roots[1])
	assert.NotNil(t, c.Dispatcher())
}
