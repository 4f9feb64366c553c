package editors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersVisual(t *testing.T) {
	t.Setenv("VISUAL", "myeditor")
	t.Setenv("EDITOR", "other")

	name, args, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "myeditor", name)
	assert.Empty(t, args)
}

func TestResolveSplitsArguments(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "code --wait")

	name, args, err := Resolve()
	require.NoError(t, err)
	assert.Equal(t, "code", name)
	assert.Equal(t, []string{"--wait"}, args)
}

func TestCommandAppendsPath(t *testing.T) {
	t.Setenv("VISUAL", "myeditor --flag")

	cmd, err := Command("/tmp/file.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"myeditor", "--flag", "/tmp/file.md"}, cmd.Args)
}
