package editor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"resultlens/internal/ports"
)

// Opener implements ports.EditorOpener
type Opener struct{}

var _ ports.EditorOpener = (*Opener)(nil)

// NewOpener creates a new editor opener
func NewOpener() *Opener {
	return &Opener{}
}

// OpenFile opens a file in the user's preferred editor
func (o *Opener) OpenFile(path string, line int) error {
	cmd, err := o.Command(path, line)
	if err != nil {
		return err
	}
	return cmd.Run()
}

// Command returns an exec.Cmd for opening a file in the editor
// This is useful for integrating with bubbletea's ExecProcess
func (o *Opener) Command(path string, line int) (*exec.Cmd, error) {
	editor := o.findEditor()
	if editor == "" {
		return nil, fmt.Errorf("no editor found: set $EDITOR environment variable")
	}

	cmd := exec.Command(editor, Args(editor, path, line)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd, nil
}

// Args builds the editor arguments for jumping to a line
func Args(editor, path string, line int) []string {
	if line <= 0 {
		return []string{path}
	}
	switch filepath.Base(editor) {
	case "code", "code-insiders", "cursor", "zed":
		return []string{"--goto", path + ":" + strconv.Itoa(line)}
	case "subl", "hx", "helix":
		return []string{path + ":" + strconv.Itoa(line)}
	default:
		// vi family, nano, emacs and kakoune accept +LINE
		return []string{"+" + strconv.Itoa(line), path}
	}
}

// findEditor returns the editor to use
func (o *Opener) findEditor() string {
	// Check $EDITOR first
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}

	// Check $VISUAL
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}

	// Try common editors
	editors := []string{"nvim", "vim", "vi", "nano", "code"}
	for _, editor := range editors {
		if path, err := exec.LookPath(editor); err == nil {
			return path
		}
	}

	return ""
}
