package application

import (
	"resultlens/internal/domain"
	"resultlens/internal/ingest"
	"resultlens/internal/viewport"
)

// Options configure a Session
type Options struct {
	Root      string
	Metrics   domain.Metrics
	Overscan  int
	HideEmpty bool
	ViewMode  domain.ViewMode
	Ingest    ingest.Options
}

// SearchRun identifies one engine run and the level its messages belong to
type SearchRun struct {
	ID    int
	Level int
	Root  string
	Query domain.QueryParams
}

// Change tells listeners what part of the session moved
type Change int

const (
	ChangeResults Change = iota
	ChangeStructure
	ChangeStatus
)

// View is the derived render state of the active level
type View struct {
	Tree   *domain.Folder
	Rows   []domain.FlatRow
	Layout *viewport.Layout
}
