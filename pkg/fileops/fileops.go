// Package fileops provides the small set of file-system primitives the
// rest of the application writes through: containment validation and
// atomic file creation. Reads go through the tree and search packages
// directly; this package only guards mutations.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFileInDirectory reports whether filePath resolves to a location
// inside baseDir. Both paths are made absolute and symlinks in baseDir are
// resolved, so a crafted "../" path or a link pointing outside the base
// cannot pass.
func ValidateFileInDirectory(filePath, baseDir string) error {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("cannot resolve file path: %w", err)
	}

	rel, err := filepath.Rel(absBase, absFile)
	if err != nil {
		return fmt.Errorf("cannot relate %s to %s: %w", absFile, absBase, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes directory %s", filePath, baseDir)
	}
	return nil
}

// EnsureDirectoryExists creates path and any missing parents.
func EnsureDirectoryExists(path string) error {
	if path == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", path)
		}
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// AtomicWrite writes content to destPath through a temporary file in the
// same directory followed by a rename, so readers never observe a partial
// file. Refuses to overwrite an existing file.
func AtomicWrite(destPath string, content []byte) error {
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("file already exists: %s", destPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat destination: %w", err)
	}

	dir := filepath.Dir(destPath)
	if err := EnsureDirectoryExists(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".repotree-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, destPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
