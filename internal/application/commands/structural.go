package commands

import (
	"context"
	"fmt"
	"log"

	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

// ToggleCommand expands or collapses the node of a row
type ToggleCommand struct {
	session *application.Session
	Row     domain.FlatRow
}

// NewToggleCommand creates a new ToggleCommand
func NewToggleCommand(session *application.Session, row domain.FlatRow) *ToggleCommand {
	return &ToggleCommand{session: session, Row: row}
}

// Execute toggles the row and reports whether it is now expanded
func (c *ToggleCommand) Execute(ctx context.Context) (bool, error) {
	switch n := c.Row.Node.(type) {
	case *domain.Folder:
		return c.session.ToggleFolder(n.RelPath), nil
	case *domain.File:
		if !n.HasMatches() {
			return false, &application.StructuralError{Op: "expand", Target: n.RelPath}
		}
		return c.session.ToggleFile(n.FileID), nil
	case *domain.MatchRow:
		return false, &application.StructuralError{Op: "expand", Target: "match"}
	}
	return false, nil
}

// SetViewModeCommand switches the active level between tree and flat mode
type SetViewModeCommand struct {
	session *application.Session
	Mode    domain.ViewMode
}

// NewSetViewModeCommand creates a new SetViewModeCommand
func NewSetViewModeCommand(session *application.Session, mode domain.ViewMode) *SetViewModeCommand {
	return &SetViewModeCommand{session: session, Mode: mode}
}

// Execute sets the view mode
func (c *SetViewModeCommand) Execute(ctx context.Context) error {
	c.session.SetViewMode(c.Mode)
	return nil
}

// ExcludeFileCommand removes a file from the results and from later runs
type ExcludeFileCommand struct {
	engine  ports.MatchEngine
	session *application.Session
	FileID  string
}

// NewExcludeFileCommand creates a new ExcludeFileCommand
func NewExcludeFileCommand(engine ports.MatchEngine, session *application.Session, fileID string) *ExcludeFileCommand {
	return &ExcludeFileCommand{engine: engine, session: session, FileID: fileID}
}

// Execute excludes the file
func (c *ExcludeFileCommand) Execute(ctx context.Context) error {
	if err := c.session.Exclude(c.FileID); err != nil {
		return err
	}
	c.engine.ExcludeFile(c.FileID)
	return nil
}

// ReorderCommand moves a node next to a sibling and persists the new order
type ReorderCommand struct {
	session   *application.Session
	store     ports.StateStore
	Source    string
	Target    string
	Placement domain.Placement
}

// NewReorderCommand creates a new ReorderCommand. store may be nil.
func NewReorderCommand(session *application.Session, store ports.StateStore, source, target string, place domain.Placement) *ReorderCommand {
	return &ReorderCommand{
		session:   session,
		store:     store,
		Source:    source,
		Target:    target,
		Placement: place,
	}
}

// Execute reorders. A rejected move returns an error wrapping
// application.ErrRejected and changes nothing.
func (c *ReorderCommand) Execute(ctx context.Context) error {
	if err := c.session.Reorder(c.Source, c.Target, c.Placement); err != nil {
		return err
	}
	if c.store == nil {
		return nil
	}
	if err := c.store.SaveOrder(c.session.Root(), c.session.Order()); err != nil {
		return fmt.Errorf("persist order: %w", err)
	}
	return nil
}

// MoveSiblingCommand moves a row one position up or down among its siblings
type MoveSiblingCommand struct {
	session *application.Session
	store   ports.StateStore
	Path    string
	Delta   int
}

// NewMoveSiblingCommand creates a new MoveSiblingCommand
func NewMoveSiblingCommand(session *application.Session, store ports.StateStore, path string, delta int) *MoveSiblingCommand {
	return &MoveSiblingCommand{session: session, store: store, Path: path, Delta: delta}
}

// Execute moves the node
func (c *MoveSiblingCommand) Execute(ctx context.Context) error {
	parent, node, ok := domain.FindParent(c.session.View().Tree, c.Path)
	if !ok {
		return &application.StructuralError{Op: "move", Target: c.Path, Err: domain.ErrNodeMissing}
	}
	var siblings []string
	for _, ch := range parent.Children {
		if domain.IsDir(ch) == domain.IsDir(node) {
			siblings = append(siblings, domain.NodePath(ch))
		}
	}
	i := indexOf(siblings, c.Path)
	j := i + c.Delta
	if j < 0 || j >= len(siblings) {
		return &application.StructuralError{Op: "move", Target: c.Path}
	}
	place := domain.PlaceAfter
	if c.Delta < 0 {
		place = domain.PlaceBefore
	}
	return NewReorderCommand(c.session, c.store, c.Path, siblings[j], place).Execute(ctx)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// ResetOrderCommand drops the custom order of the session root
type ResetOrderCommand struct {
	session *application.Session
	store   ports.StateStore
}

// NewResetOrderCommand creates a new ResetOrderCommand
func NewResetOrderCommand(session *application.Session, store ports.StateStore) *ResetOrderCommand {
	return &ResetOrderCommand{session: session, store: store}
}

// Execute resets the order in memory and in the store
func (c *ResetOrderCommand) Execute(ctx context.Context) error {
	c.session.ResetOrder()
	if c.store == nil {
		return nil
	}
	tx, err := c.store.BeginTx()
	if err != nil {
		return fmt.Errorf("reset order: %w", err)
	}
	if err := tx.ClearOrder(c.session.Root()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("reset order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset order: %w", err)
	}
	log.Printf("store: cleared order for %s", c.session.Root())
	return nil
}
