// Package mcpconfig reads MCP server configuration files.
//
// Config files are edited by hand and are routinely malformed mid-keystroke,
// so this package deliberately avoids a full JSON decoder. A small
// brace-depth scanner extracts the top-level entry names of the servers
// object and classifies each entry's transport; anything it cannot make
// sense of is simply ignored. The scanner never fails: truncated or
// unbalanced input yields the entries that were completely parsed before
// the damage.
package mcpconfig

import (
	"strings"
)

// Transport classifies how an MCP server entry is reached.
type Transport int

const (
	// TransportStdio is a locally spawned server spoken to over stdin/stdout.
	TransportStdio Transport = iota
	// TransportRemote is a server reached over HTTP/SSE, identified by a url key.
	TransportRemote
)

func (t Transport) String() string {
	if t == TransportRemote {
		return "remote"
	}
	return "local"
}

// ServerEntry is one named server parsed out of a config file. Span holds
// the raw text of the entry's object, brace to brace inclusive.
type ServerEntry struct {
	Name      string
	Transport Transport
	Span      string
}

// ParseServers extracts the entries of the top-level object named objectKey
// from a JSON-ish document. Entry order is the order encountered in the
// scan. A duplicate key overwrites the earlier entry in place, matching
// what a real JSON decoder would do when building a map.
func ParseServers(data []byte, objectKey string) []ServerEntry {
	text := string(data)

	start := findObjectStart(text, objectKey)
	if start < 0 {
		return nil
	}

	var (
		entries  []ServerEntry
		byName   = map[string]int{}
		depth    = 1 // inside the target object
		inString bool
		escaped  bool

		token      strings.Builder
		capturing  bool
		pendingKey string
		haveKey    bool
		entryName  string
		entryStart = -1
	)

	for i := start + 1; i < len(text); i++ {
		c := text[i]

		if inString {
			if escaped {
				escaped = false
				if capturing {
					token.WriteByte(c)
				}
				continue
			}
			switch c {
			case '\\':
				escaped = true
				if capturing {
					token.WriteByte(c)
				}
			case '"':
				inString = false
				if capturing {
					capturing = false
					// A quoted token directly under the target object is a
					// key candidate only if a colon follows.
					if depth == 1 && nextNonSpace(text, i+1) == ':' {
						pendingKey = token.String()
						haveKey = true
					}
				}
			default:
				if capturing {
					token.WriteByte(c)
				}
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			if depth == 1 {
				token.Reset()
				capturing = true
			}
		case '{':
			if depth == 1 && haveKey {
				entryName = pendingKey
				entryStart = i
				haveKey = false
			}
			depth++
		case '}':
			depth--
			if depth == 1 && entryStart >= 0 {
				entry := ServerEntry{
					Name: entryName,
					Span: text[entryStart : i+1],
				}
				entry.Transport = classify(entry.Span)
				if prev, ok := byName[entry.Name]; ok {
					entries[prev] = entry
				} else {
					byName[entry.Name] = len(entries)
					entries = append(entries, entry)
				}
				entryStart = -1
			}
			if depth <= 0 {
				return entries
			}
		}
	}

	// Ran off the end of a truncated document. Whatever completed, stands.
	return entries
}

// Names returns the entry names in scan order.
func Names(entries []ServerEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// findObjectStart locates the opening brace of the value belonging to the
// top-level key objectKey. Returns -1 when the key or its object is absent.
func findObjectStart(text, objectKey string) int {
	needle := `"` + objectKey + `"`
	idx := strings.Index(text, needle)
	if idx < 0 {
		return -1
	}

	rest := idx + len(needle)
	colon := strings.IndexByte(text[rest:], ':')
	if colon < 0 {
		return -1
	}
	brace := strings.IndexByte(text[rest+colon:], '{')
	if brace < 0 {
		return -1
	}
	return rest + colon + brace
}

// classify decides the transport backing an entry. The presence of a url
// key means the server is remote; its absence means a locally spawned
// stdio server. A substring test is enough at the fidelity this parser
// operates at.
func classify(span string) Transport {
	if strings.Contains(span, `"url"`) {
		return TransportRemote
	}
	return TransportStdio
}

func nextNonSpace(text string, from int) byte {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return text[i]
		}
	}
	return 0
}
