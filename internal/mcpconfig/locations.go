package mcpconfig

import (
	"os"
	"path/filepath"

	"repotree/internal/logging"
	"repotree/pkg/pathutil"
)

// Location describes one well-known place an MCP config file may live for
// a given repository. Locations are value objects: enumerated fresh each
// time they are needed and never mutated after construction.
type Location struct {
	// Path is the absolute path of the config file, whether or not it exists.
	Path string
	// Label is the human-readable name shown for this location.
	Label string
	// Tracked reports whether the file is expected to be committed to
	// source control.
	Tracked bool
	// ObjectKey is the top-level key holding the server entries in this
	// file format.
	ObjectKey string
	// Exists reports whether the file was present when enumerated.
	Exists bool
	// Entries holds the parsed server entries for an existing file.
	Entries []ServerEntry
}

type candidate struct {
	rel       string
	label     string
	tracked   bool
	objectKey string
}

// repoCandidates are the per-repository config files, in display order.
var repoCandidates = []candidate{
	{".mcp.json", "Repository", true, "servers"},
	{filepath.Join(".vscode", "mcp.json"), "VS Code", true, "servers"},
	{filepath.Join(".cursor", "mcp.json"), "Cursor", true, "mcpServers"},
}

// EnumerateLocations returns the candidate MCP config locations for the
// repository rooted at repoRoot, plus the user-level file in the home
// directory. Each existing file is read and parsed; read failures are
// treated the same as an absent file.
func EnumerateLocations(repoRoot string) []Location {
	locations := make([]Location, 0, len(repoCandidates)+1)

	for _, c := range repoCandidates {
		locations = append(locations, load(filepath.Join(repoRoot, c.rel), c.label, c.tracked, c.objectKey))
	}

	user := pathutil.ExpandPath(filepath.Join("~", ".mcp.json"))
	locations = append(locations, load(user, "User", false, "servers"))

	return locations
}

func load(path, label string, tracked bool, objectKey string) Location {
	loc := Location{
		Path:      path,
		Label:     label,
		Tracked:   tracked,
		ObjectKey: objectKey,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("Skipping unreadable MCP config", "path", path, "error", err)
		}
		return loc
	}

	loc.Exists = true
	loc.Entries = ParseServers(data, objectKey)
	return loc
}
