// Package pathutil provides small path helpers shared across repotree:
// repository root discovery, metadata folder lookup, and filename
// sanitization.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// GitHubDirName is the repository metadata folder surfaced by repotree.
const GitHubDirName = ".github"

// invalidFileChars are characters rejected by at least one supported
// platform's file system.
const invalidFileChars = `<>:"/\|?*`

// FindRepoRoot walks upward from start looking for a directory containing
// a .git entry. Returns the repository root, or an empty string and false
// when start is not inside a repository.
func FindRepoRoot(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			// .git may be a file in worktrees and submodules; both count.
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// GitHubDir returns the path of the .github folder for the repository
// containing start, and whether the folder currently exists on disk.
// The path is returned even when the folder does not exist yet, so a
// caller can surface it as a pending node and watch for its creation.
func GitHubDir(start string) (string, bool, error) {
	root, ok := FindRepoRoot(start)
	if !ok {
		abs, err := filepath.Abs(start)
		if err != nil {
			return "", false, err
		}
		root = abs
	}

	dir := filepath.Join(root, GitHubDirName)
	info, err := os.Stat(dir)
	exists := err == nil && info.IsDir()
	return dir, exists, nil
}

// SanitizeFileName strips characters that are invalid in file names and
// trims surrounding whitespace and trailing dots. Returns an empty string
// when nothing usable remains.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidFileChars, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	out = strings.TrimRight(out, ".")
	return out
}

// ExpandPath expands a path that starts with "~/" to the user's home
// directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original path if home directory unavailable
	}

	return filepath.Join(home, path[2:])
}
