package tree

import (
	"path/filepath"
	"strings"
)

// Icon selectors are derived from well-known name tables rather than stored
// on nodes, so a rename re-derives the icon for free. The names are logical
// selectors; rendering layers map them to glyphs or image monikers.

var knownFiles = map[string]string{
	"funding.yml":              "heart",
	"codeowners":               "shield",
	"dependabot.yml":           "robot",
	"copilot-instructions.md":  "copilot",
	"pull_request_template.md": "template",
	"security.md":              "lock",
	"code_of_conduct.md":       "handshake",
	"contributing.md":          "pencil",
	"support.md":               "lifebuoy",
	"mcp.json":                 "plug",
	".mcp.json":                "plug",
}

var knownFolders = map[string]string{
	"workflows":           "gear",
	"issue_template":      "template",
	"actions":             "gear",
	"instructions":        "copilot",
	"prompts":             "copilot",
	"chatmodes":           "copilot",
	"discussion_template": "template",
}

var extensionIcons = map[string]string{
	".yml":  "yaml",
	".yaml": "yaml",
	".md":   "markdown",
	".json": "json",
}

// IconForFile returns the icon selector for a file name.
func IconForFile(name string) string {
	lower := strings.ToLower(name)
	if icon, ok := knownFiles[lower]; ok {
		return icon
	}
	if icon, ok := extensionIcons[filepath.Ext(lower)]; ok {
		return icon
	}
	return "file"
}

// IconForFolder returns the icon selector for a folder name.
func IconForFolder(name string) string {
	if icon, ok := knownFolders[strings.ToLower(name)]; ok {
		return icon
	}
	return "folder"
}
