package ports

import "os/exec"

// EditorOpener defines the interface for opening files in an external editor
type EditorOpener interface {
	// OpenFile opens path at line (1-based, 0 for none) in the user's editor.
	// It uses $EDITOR, falling back to common editors
	OpenFile(path string, line int) error

	// Command returns an exec.Cmd for opening a file in the editor
	// This is useful for integrating with bubbletea's ExecProcess
	Command(path string, line int) (*exec.Cmd, error)
}
