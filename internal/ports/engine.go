package ports

import (
	"context"

	"resultlens/internal/domain"
)

// Emit delivers a message from an engine to its host. Hosts are expected to
// hop onto their own execution context before touching session state.
type Emit func(domain.Message)

// MatchEngine performs the actual text search and replacement
type MatchEngine interface {
	// StartSearch runs query under root and streams messages through emit.
	// The first MatchBatch of a run has IsNewSearch set. It returns once the
	// run has finished or ctx is cancelled.
	StartSearch(ctx context.Context, root string, query domain.QueryParams, emit Emit) error

	// StopSearch cancels the running search, if any
	StopSearch()

	// Replace applies query.Replace to the given files and reports a
	// ReplacementComplete message
	Replace(ctx context.Context, root string, query domain.QueryParams, fileIDs []string, emit Emit) error

	// ExcludeFile keeps fileID out of later runs
	ExcludeFile(fileID string)
}

// ContentWatcher reports edits to files that currently hold results
type ContentWatcher interface {
	// Watch replaces the watched file set
	Watch(fileIDs []string) error
	Close() error
}
