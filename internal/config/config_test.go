package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 100*time.Millisecond, cfg.ChildDebounce)
	assert.Equal(t, 200*time.Millisecond, cfg.RootDebounce)
	assert.Equal(t, 200, cfg.SearchLimit)
	assert.Zero(t, cfg.SearchWorkers)
	assert.Contains(t, cfg.SkipPatterns, ".git")
	assert.NoError(t, cfg.validate())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.ChildDebounce = 250 * time.Millisecond
	cfg.SearchLimit = 50
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, loaded.ChildDebounce)
	assert.Equal(t, 50, loaded.SearchLimit)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, 200*time.Millisecond, loaded.RootDebounce)
}

func TestLoadFromPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_limit: 25\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.SearchLimit)
	assert.Equal(t, 100*time.Millisecond, cfg.ChildDebounce)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero debounce", "child_debounce: 0s\n"},
		{"negative workers", "search_workers: -2\n"},
		{"zero search limit", "search_limit: 0\n"},
		{"malformed yaml", "search_limit: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveToCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "config.yaml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
