package commands

import (
	"context"
	"fmt"

	"resultlens/internal/application"
	"resultlens/internal/ports"
)

// SaveStateCommand persists the custom order and the refinement stack
type SaveStateCommand struct {
	session *application.Session
	store   ports.StateStore
}

// NewSaveStateCommand creates a new SaveStateCommand
func NewSaveStateCommand(session *application.Session, store ports.StateStore) *SaveStateCommand {
	return &SaveStateCommand{session: session, store: store}
}

// Execute writes the state
func (c *SaveStateCommand) Execute(ctx context.Context) error {
	root := c.session.Root()
	if root == "" {
		return application.ErrNoRoot
	}
	if err := c.store.SaveOrder(root, c.session.Order()); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if err := c.store.SaveStack(root, c.session.Snapshot()); err != nil {
		return fmt.Errorf("save stack: %w", err)
	}
	return nil
}

// LoadStateCommand restores the custom order and the refinement stack of the
// session root. It returns the runs needed to repopulate restored levels.
type LoadStateCommand struct {
	session *application.Session
	store   ports.StateStore
}

// NewLoadStateCommand creates a new LoadStateCommand
func NewLoadStateCommand(session *application.Session, store ports.StateStore) *LoadStateCommand {
	return &LoadStateCommand{session: session, store: store}
}

// Execute loads the state
func (c *LoadStateCommand) Execute(ctx context.Context) ([]application.SearchRun, error) {
	root := c.session.Root()
	if root == "" {
		return nil, application.ErrNoRoot
	}
	order, err := c.store.LoadOrder(root)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	c.session.SetOrder(order)

	snap, err := c.store.LoadStack(root)
	if err != nil {
		return nil, fmt.Errorf("load stack: %w", err)
	}
	if snap == nil {
		return nil, nil
	}
	return c.session.Restore(*snap), nil
}
