package domain

// LevelSnapshot is the persisted form of one refinement level
type LevelSnapshot struct {
	Query           QueryParams `json:"query"`
	Stats           *Stats      `json:"stats,omitempty"`
	ExpandedFiles   []string    `json:"expanded_files,omitempty"`
	ExpandedFolders []string    `json:"expanded_folders,omitempty"`
	ViewMode        string      `json:"view_mode"`
	Scope           []string    `json:"scope,omitempty"`
}

// StackSnapshot is the persisted refinement stack of one root.
// Results are not stored; restoring re-runs the queries.
type StackSnapshot struct {
	Active int             `json:"active"`
	Levels []LevelSnapshot `json:"levels"`
}
