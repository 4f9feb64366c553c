package mcpconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServersClassification(t *testing.T) {
	data := []byte(`{"servers": {"alpha": {"url": "http://x"}, "beta": {"command": "run"}}}`)

	entries := ParseServers(data, "servers")
	require.Len(t, entries, 2)

	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, TransportRemote, entries[0].Transport)
	assert.Equal(t, "beta", entries[1].Name)
	assert.Equal(t, TransportStdio, entries[1].Transport)
}

func TestParseServersTruncated(t *testing.T) {
	entries := ParseServers([]byte(`{"servers": {"alpha": {`), "servers")
	assert.Empty(t, entries)
}

func TestParseServersTruncatedAfterFirstEntry(t *testing.T) {
	data := []byte(`{"servers": {"alpha": {"command": "run"}, "beta": {"url":`)

	entries := ParseServers(data, "servers")
	require.Len(t, entries, 1)
	assert.Equal(t, "alpha", entries[0].Name)
}

func TestParseServersMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"empty document", ``, nil},
		{"no target object", `{"other": {"a": {}}}`, nil},
		{"key without object", `{"servers": "nope"}`, nil},
		{"unbalanced braces", `{"servers": {"a": {}}`, []string{"a"}},
		{"garbage after close", `{"servers": {"a": {}}} trailing {{{`, []string{"a"}},
		{"brace inside string ignored", `{"servers": {"a": {"command": "{not a brace}"}}}`, []string{"a"}},
		{"escaped quote inside string", `{"servers": {"a": {"command": "say \"hi\" {"}}}`, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := ParseServers([]byte(tt.data), "servers")
			assert.Equal(t, tt.want, Names(entries))
		})
	}
}

func TestParseServersDuplicateKeyOverwrites(t *testing.T) {
	data := []byte(`{"servers": {"a": {"command": "run"}, "a": {"url": "http://x"}}}`)

	entries := ParseServers(data, "servers")
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name)
	assert.Equal(t, TransportRemote, entries[0].Transport)
}

func TestParseServersInsertionOrder(t *testing.T) {
	data := []byte(`{"servers": {"zeta": {}, "alpha": {}, "mid": {}}}`)

	entries := ParseServers(data, "servers")
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, Names(entries))
}

func TestParseServersScalarSiblingSkipped(t *testing.T) {
	// A scalar-valued key under the target object is not an entry; the
	// brace that follows belongs to the next key.
	data := []byte(`{"servers": {"version": "2", "real": {"command": "run"}}}`)

	entries := ParseServers(data, "servers")
	require.Len(t, entries, 1)
	assert.Equal(t, "real", entries[0].Name)
}

func TestParseServersNestedObjectsStayInsideEntry(t *testing.T) {
	data := []byte(`{"servers": {"a": {"env": {"K": "V"}, "args": {"x": {"y": 1}}}, "b": {}}}`)

	entries := ParseServers(data, "servers")
	assert.Equal(t, []string{"a", "b"}, Names(entries))
}

func TestParseServersAlternateObjectKey(t *testing.T) {
	data := []byte(`{"mcpServers": {"cursor-local": {"command": "npx"}}}`)

	entries := ParseServers(data, "mcpServers")
	require.Len(t, entries, 1)
	assert.Equal(t, "cursor-local", entries[0].Name)
	assert.Equal(t, TransportStdio, entries[0].Transport)
}

func TestTransportString(t *testing.T) {
	assert.Equal(t, "remote", TransportRemote.String())
	assert.Equal(t, "local", TransportStdio.String())
}
