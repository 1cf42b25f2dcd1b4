package commands

import (
	"context"
	"os/exec"

	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

// OpenRowCommand opens the file of a row in the editor, at the match line
// for match rows
type OpenRowCommand struct {
	editor  ports.EditorOpener
	session *application.Session
	Row     domain.FlatRow
}

// NewOpenRowCommand creates a new OpenRowCommand
func NewOpenRowCommand(editor ports.EditorOpener, session *application.Session, row domain.FlatRow) *OpenRowCommand {
	return &OpenRowCommand{editor: editor, session: session, Row: row}
}

// Target resolves the path and line to open
func (c *OpenRowCommand) Target() (string, int, error) {
	file, ok := c.session.RowFile(c.Row)
	if !ok {
		return "", 0, &application.StructuralError{Op: "open", Target: domain.NodePath(c.Row.Node), Err: application.ErrNotFound}
	}
	line := 0
	if m, ok := c.Row.Node.(*domain.MatchRow); ok {
		line = m.LineNo
	}
	return file.AbsolutePath, line, nil
}

// Command returns the editor process, for hosts that hand the terminal over
func (c *OpenRowCommand) Command() (*exec.Cmd, error) {
	path, line, err := c.Target()
	if err != nil {
		return nil, err
	}
	return c.editor.Command(path, line)
}

// Execute opens the file and waits for the editor to exit
func (c *OpenRowCommand) Execute(ctx context.Context) error {
	path, line, err := c.Target()
	if err != nil {
		return err
	}
	return c.editor.OpenFile(path, line)
}
