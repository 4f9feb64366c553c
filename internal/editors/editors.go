// Package editors resolves the user's preferred text editor and builds the
// commands used to open tree nodes in it.
package editors

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// fallbacks are tried in order when neither VISUAL nor EDITOR is set.
var fallbacks = []string{"nano", "vim", "vi"}

// Resolve returns the editor command name and any arguments baked into the
// environment value (e.g. EDITOR="code --wait").
func Resolve() (string, []string, error) {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			parts := strings.Fields(v)
			return parts[0], parts[1:], nil
		}
	}

	if runtime.GOOS == "windows" {
		return "notepad", nil, nil
	}
	for _, name := range fallbacks {
		if _, err := exec.LookPath(name); err == nil {
			return name, nil, nil
		}
	}
	return "", nil, fmt.Errorf("no editor found: set the EDITOR environment variable")
}

// Command builds the exec.Cmd that opens path in the resolved editor, with
// the terminal attached so full-screen editors work.
func Command(path string) (*exec.Cmd, error) {
	editor, args, err := Resolve()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(editor, append(args, path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd, nil
}
