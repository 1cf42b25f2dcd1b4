// Package headless drives a Session without a terminal UI. The CLI and the
// MCP server share it.
package headless

import (
	"context"
	"errors"
	"fmt"

	"resultlens/internal/application"
	"resultlens/internal/application/commands"
	"resultlens/internal/domain"
	"resultlens/internal/loop"
	"resultlens/internal/ports"
)

// Runner owns a loop.Loop and the Session living on it. Every session call
// goes through Do, so callers may use a Runner from any goroutine.
type Runner struct {
	loop    *loop.Loop
	session *application.Session
	engine  ports.MatchEngine
	store   ports.StateStore
}

// New starts a runner. store may be nil.
func New(ctx context.Context, opts application.Options, engine ports.MatchEngine, store ports.StateStore) *Runner {
	l := loop.New(0)
	l.Start(ctx)
	return &Runner{
		loop:    l,
		session: application.NewSession(l, opts),
		engine:  engine,
		store:   store,
	}
}

// Close stops the engine and the loop
func (r *Runner) Close() {
	r.engine.StopSearch()
	r.loop.Stop()
	r.loop.Wait()
}

// Do runs fn with the session on the loop and returns its error
func (r *Runner) Do(ctx context.Context, fn func(s *application.Session) error) error {
	var err error
	if lerr := r.loop.Do(ctx, func() { err = fn(r.session) }); lerr != nil {
		return lerr
	}
	return err
}

// Search runs q on the active level and waits until its results are merged
func (r *Runner) Search(ctx context.Context, q domain.QueryParams) error {
	var run application.SearchRun
	err := r.Do(ctx, func(s *application.Session) error {
		var err error
		run, err = commands.NewBeginSearchCommand(s, q).Execute(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return r.execute(ctx, run)
}

// Refine pushes a level for q and waits until its results are merged
func (r *Runner) Refine(ctx context.Context, q domain.QueryParams) error {
	var run application.SearchRun
	err := r.Do(ctx, func(s *application.Session) error {
		var err error
		run, err = commands.NewRefineCommand(s, q).Execute(ctx)
		return err
	})
	if err != nil {
		return err
	}
	return r.execute(ctx, run)
}

// LoadOrder applies the stored custom order of the session root, so results
// print in that order and Save writes it back unchanged
func (r *Runner) LoadOrder(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.Do(ctx, func(s *application.Session) error {
		order, err := r.store.LoadOrder(s.Root())
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		s.SetOrder(order)
		return nil
	})
}

// Restore loads the saved order and stack of the session root and reruns
// every restored level. It reports whether a stack was found.
func (r *Runner) Restore(ctx context.Context) (bool, error) {
	if r.store == nil {
		return false, nil
	}
	var runs []application.SearchRun
	err := r.Do(ctx, func(s *application.Session) error {
		var err error
		runs, err = commands.NewLoadStateCommand(s, r.store).Execute(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	for _, run := range runs {
		if err := r.execute(ctx, run); err != nil {
			return true, err
		}
	}
	return len(runs) > 0, nil
}

// Save persists the order and stack of the session root
func (r *Runner) Save(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.Do(ctx, func(s *application.Session) error {
		err := commands.NewSaveStateCommand(s, r.store).Execute(ctx)
		if errors.Is(err, application.ErrNoRoot) {
			return nil
		}
		return err
	})
}

// ResetOrder drops the custom order of the session root
func (r *Runner) ResetOrder(ctx context.Context) error {
	return r.Do(ctx, func(s *application.Session) error {
		return commands.NewResetOrderCommand(s, r.store).Execute(ctx)
	})
}

// execute runs the engine for run and drains every level once the engine
// returns. Messages are posted in order, so the drain sees all of them.
func (r *Runner) execute(ctx context.Context, run application.SearchRun) error {
	deliver := func(id int, msg domain.Message) {
		_ = r.loop.Post(func() { r.session.DispatchRun(id, msg) })
	}
	err := commands.NewSearchCommand(r.engine, run, deliver).Execute(ctx)
	derr := r.Do(ctx, func(s *application.Session) error {
		for _, l := range s.Stack().Levels() {
			l.Aggregator().Drain()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if derr != nil {
		return fmt.Errorf("drain: %w", derr)
	}
	return nil
}
