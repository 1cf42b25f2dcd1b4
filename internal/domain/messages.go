package domain

// MessageKind discriminates messages coming from the matching engine
type MessageKind string

const (
	KindInitialData         MessageKind = "initialData"
	KindStatusUpdate        MessageKind = "statusUpdate"
	KindMatchBatch          MessageKind = "matchBatch"
	KindFileContentUpdated  MessageKind = "fileContentUpdated"
	KindReplacementComplete MessageKind = "replacementComplete"
	KindClearResults        MessageKind = "clearResults"
)

// Message is anything the core consumes from its host or engine
type Message interface {
	Kind() MessageKind
}

// InitialData announces the root and query of a search session
type InitialData struct {
	RootPath string
	Query    QueryParams
}

// StatusUpdate reports engine progress
type StatusUpdate struct {
	Running             bool
	Completed           int
	Total               int
	NumMatches          int
	NumFilesWithMatches int
	NumFilesWithErrors  int
}

// MatchBatch carries a batch of events. IsNewSearch clears the target level first.
type MatchBatch struct {
	Events      []MatchEvent
	IsNewSearch bool
}

// FileContentUpdated replaces cached snapshots of a file in every level
type FileContentUpdated struct {
	FileID  string
	Content string
}

// ReplacementComplete summarizes a finished replace run
type ReplacementComplete struct {
	TotalReplacements int
	TotalFilesChanged int
}

// ClearResults drops every result of the active level
type ClearResults struct{}

func (InitialData) Kind() MessageKind         { return KindInitialData }
func (StatusUpdate) Kind() MessageKind        { return KindStatusUpdate }
func (MatchBatch) Kind() MessageKind          { return KindMatchBatch }
func (FileContentUpdated) Kind() MessageKind  { return KindFileContentUpdated }
func (ReplacementComplete) Kind() MessageKind { return KindReplacementComplete }
func (ClearResults) Kind() MessageKind        { return KindClearResults }
