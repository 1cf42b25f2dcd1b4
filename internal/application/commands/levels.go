package commands

import (
	"context"

	"resultlens/internal/application"
	"resultlens/internal/refinement"
)

// CloseLevelCommand discards the active refinement level and everything deeper
type CloseLevelCommand struct {
	session *application.Session
}

// NewCloseLevelCommand creates a new CloseLevelCommand
func NewCloseLevelCommand(session *application.Session) *CloseLevelCommand {
	return &CloseLevelCommand{session: session}
}

// Execute closes the level
func (c *CloseLevelCommand) Execute(ctx context.Context) error {
	return c.session.CloseLevel()
}

// JumpLevelCommand activates another level, keeping deeper ones
type JumpLevelCommand struct {
	session *application.Session
	Index   int
}

// NewJumpLevelCommand creates a new JumpLevelCommand
func NewJumpLevelCommand(session *application.Session, index int) *JumpLevelCommand {
	return &JumpLevelCommand{session: session, Index: index}
}

// Execute jumps to the level
func (c *JumpLevelCommand) Execute(ctx context.Context) error {
	return c.session.JumpTo(c.Index)
}

// ListLevelsCommand returns the breadcrumb of every level
type ListLevelsCommand struct {
	session *application.Session
}

// NewListLevelsCommand creates a new ListLevelsCommand
func NewListLevelsCommand(session *application.Session) *ListLevelsCommand {
	return &ListLevelsCommand{session: session}
}

// Execute lists the levels
func (c *ListLevelsCommand) Execute(ctx context.Context) ([]refinement.Breadcrumb, error) {
	return c.session.Stack().Breadcrumbs(), nil
}
