package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, ".github", "ISSUE_TEMPLATE")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDiscoverMissingDirectory(t *testing.T) {
	got, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiscoverParsesFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "bug_report.md", `---
name: Bug report
about: Report something broken
labels: [bug, triage]
---
**Describe the bug**
`)

	got, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bug report", got[0].Name)
	assert.Equal(t, "Report something broken", got[0].About)
	assert.Equal(t, []string{"bug", "triage"}, got[0].Labels)
	assert.Equal(t, "bug_report.md", got[0].FileName)
	assert.Contains(t, got[0].Body, "Describe the bug")
	assert.NotContains(t, got[0].Body, "name: Bug report")
}

func TestDiscoverFormTemplatesUseDescription(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "feature.yml", `name: Feature request
description: Suggest an idea
body:
  - type: textarea
`)

	got, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Feature request", got[0].Name)
	assert.Equal(t, "Suggest an idea", got[0].About)
}

func TestDiscoverFallsBackToFileName(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "plain.md", "just a body, no frontmatter\n")

	got, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "plain", got[0].Name)
	assert.Equal(t, "just a body, no frontmatter\n", got[0].Body)
}

func TestDiscoverSortsByDisplayName(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "zz.md", "---\nname: Alpha\n---\nbody\n")
	writeTemplate(t, root, "aa.md", "---\nname: beta\n---\nbody\n")

	got, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, "beta", got[1].Name)
}

func TestInstantiateCreatesFileFromTemplate(t *testing.T) {
	root := t.TempDir()
	tpl := Template{FileName: "bug.md", Name: "Bug", Body: "## Bug\n"}

	dest, err := Instantiate(root, tpl, "new issue")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".github", "new issue.md"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "## Bug\n", string(data))
}

func TestInstantiateSanitizesAndRejectsEmptyNames(t *testing.T) {
	root := t.TempDir()
	tpl := Template{FileName: "bug.md", Body: "x"}

	dest, err := Instantiate(root, tpl, `we<ird:"name`)
	require.NoError(t, err)
	assert.Equal(t, "weirdname.md", filepath.Base(dest))

	_, err = Instantiate(root, tpl, `<>:"`)
	assert.Error(t, err)
}

func TestInstantiateRefusesOverwrite(t *testing.T) {
	root := t.TempDir()
	tpl := Template{FileName: "bug.md", Body: "x"}

	_, err := Instantiate(root, tpl, "dup")
	require.NoError(t, err)
	_, err = Instantiate(root, tpl, "dup")
	assert.Error(t, err)
}

func TestDiscoverSkipsChooserConfigAndOtherFiles(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "config.yml", "blank_issues_enabled: false\n")
	writeTemplate(t, root, "notes.txt", "not a template\n")
	writeTemplate(t, root, "bug.md", "---\nname: Bug\n---\nbody\n")

	got, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bug", got[0].Name)
}
