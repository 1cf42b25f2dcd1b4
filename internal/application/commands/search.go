package commands

import (
	"context"
	"fmt"
	"log"

	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/ports"
)

// Deliver routes a run's messages back onto the host's execution context
type Deliver func(run int, msg domain.Message)

// SearchCommand runs one registered search through the match engine.
// Execute blocks until the engine finishes and may run off the host context;
// every message goes through deliver.
type SearchCommand struct {
	engine  ports.MatchEngine
	run     application.SearchRun
	deliver Deliver
}

// NewSearchCommand creates a new SearchCommand
func NewSearchCommand(engine ports.MatchEngine, run application.SearchRun, deliver Deliver) *SearchCommand {
	return &SearchCommand{
		engine:  engine,
		run:     run,
		deliver: deliver,
	}
}

// Execute runs the search
func (c *SearchCommand) Execute(ctx context.Context) error {
	emit := func(m domain.Message) { c.deliver(c.run.ID, m) }
	if err := c.engine.StartSearch(ctx, c.run.Root, c.run.Query, emit); err != nil {
		return fmt.Errorf("search %q: %w", c.run.Query.Pattern, err)
	}
	return nil
}

// BeginSearchCommand registers a new search on the active level.
// It must run on the host context; its result feeds a SearchCommand.
type BeginSearchCommand struct {
	session *application.Session
	Query   domain.QueryParams
}

// NewBeginSearchCommand creates a new BeginSearchCommand
func NewBeginSearchCommand(session *application.Session, query domain.QueryParams) *BeginSearchCommand {
	return &BeginSearchCommand{session: session, Query: query}
}

// Execute registers the run
func (c *BeginSearchCommand) Execute(ctx context.Context) (application.SearchRun, error) {
	return c.session.BeginSearch(c.Query)
}

// RefineCommand pushes a refinement level and registers its run
type RefineCommand struct {
	session *application.Session
	Query   domain.QueryParams
}

// NewRefineCommand creates a new RefineCommand
func NewRefineCommand(session *application.Session, query domain.QueryParams) *RefineCommand {
	return &RefineCommand{session: session, Query: query}
}

// Execute pushes the level
func (c *RefineCommand) Execute(ctx context.Context) (application.SearchRun, error) {
	return c.session.Refine(c.Query)
}

// StopSearchCommand cancels the engine and halts ingestion of the active level
type StopSearchCommand struct {
	engine  ports.MatchEngine
	session *application.Session
}

// NewStopSearchCommand creates a new StopSearchCommand
func NewStopSearchCommand(engine ports.MatchEngine, session *application.Session) *StopSearchCommand {
	return &StopSearchCommand{engine: engine, session: session}
}

// Execute stops the search
func (c *StopSearchCommand) Execute(ctx context.Context) error {
	c.engine.StopSearch()
	c.session.StopIngest()
	return nil
}

// ReplaceCommand applies the replacement of a query to the given files
type ReplaceCommand struct {
	engine  ports.MatchEngine
	root    string
	query   domain.QueryParams
	FileIDs []string
	emit    ports.Emit
}

// NewReplaceCommand creates a new ReplaceCommand
func NewReplaceCommand(engine ports.MatchEngine, root string, query domain.QueryParams, fileIDs []string, emit ports.Emit) *ReplaceCommand {
	return &ReplaceCommand{
		engine:  engine,
		root:    root,
		query:   query,
		FileIDs: fileIDs,
		emit:    emit,
	}
}

// Execute runs the replacement
func (c *ReplaceCommand) Execute(ctx context.Context) error {
	if len(c.FileIDs) == 0 {
		return nil
	}
	if err := c.engine.Replace(ctx, c.root, c.query, c.FileIDs, c.emit); err != nil {
		return fmt.Errorf("replace in %d files: %w", len(c.FileIDs), err)
	}
	log.Printf("engine: replaced %q in %d files", c.query.Pattern, len(c.FileIDs))
	return nil
}

// ReplaceTargets lists the files of the active level that have matches
func ReplaceTargets(session *application.Session) []string {
	var out []string
	for _, f := range domain.Files(session.View().Tree) {
		if f.HasMatches() {
			out = append(out, f.FileID)
		}
	}
	return out
}
