package domain

import "strings"

// LineRange locates a match by line and column (0-based, end exclusive)
type LineRange struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Match is a single hit inside a file.
// Start/End are byte offsets into the event's SourceSnapshot. When Range is
// set it takes precedence for line-oriented questions.
type Match struct {
	Start int
	End   int
	Range *LineRange
}

// ErrorInfo describes a per-file transform or read failure
type ErrorInfo struct {
	Message string
	Code    string
}

func (e *ErrorInfo) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// MatchEvent is one batch entry produced by the matching engine.
// Events are immutable once received; a file may receive several.
type MatchEvent struct {
	FileID         string
	Matches        []Match
	SourceSnapshot string
	Err            *ErrorInfo
}

// Discardable reports whether the event carries neither matches nor an error
func (e MatchEvent) Discardable() bool {
	return len(e.Matches) == 0 && e.Err == nil
}

// Text returns the matched text, or "" when the offsets do not fit the snapshot
func (e MatchEvent) Text(m Match) string {
	if m.Start < 0 || m.End < m.Start || m.End > len(e.SourceSnapshot) {
		return ""
	}
	return e.SourceSnapshot[m.Start:m.End]
}

// LineSpan returns the number of newlines a match covers
func (e MatchEvent) LineSpan(m Match) int {
	if m.Range != nil {
		if m.Range.EndLine > m.Range.StartLine {
			return m.Range.EndLine - m.Range.StartLine
		}
		return 0
	}
	return strings.Count(e.Text(m), "\n")
}

// Stats are the aggregated counters shown next to folders, files and levels
type Stats struct {
	NumMatches          int `json:"num_matches"`
	NumFilesWithMatches int `json:"num_files_with_matches"`
}

// Add returns the component-wise sum
func (s Stats) Add(o Stats) Stats {
	return Stats{
		NumMatches:          s.NumMatches + o.NumMatches,
		NumFilesWithMatches: s.NumFilesWithMatches + o.NumFilesWithMatches,
	}
}

// ViewMode selects hierarchical or per-file rendering
type ViewMode int

const (
	ViewTree ViewMode = iota
	ViewFlat
)

func (m ViewMode) String() string {
	if m == ViewFlat {
		return "flat"
	}
	return "tree"
}

// ParseViewMode accepts "tree" or "flat"; anything else is tree
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(s, "flat") {
		return ViewFlat
	}
	return ViewTree
}

// QueryParams is what the matching engine needs to run one search.
// Scope restricts the search to a set of files (refinement levels).
type QueryParams struct {
	Pattern   string   `json:"pattern"`
	Replace   string   `json:"replace,omitempty"`
	IsRegex   bool     `json:"is_regex,omitempty"`
	MatchCase bool     `json:"match_case,omitempty"`
	WholeWord bool     `json:"whole_word,omitempty"`
	Include   []string `json:"include,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
	Scope     []string `json:"scope,omitempty"`
}

// Context returns the 1-based line number of a match and the source lines it
// spans. Both are zero values when the snapshot cannot locate the match.
func (e MatchEvent) Context(m Match) (int, string) {
	src := e.SourceSnapshot
	if m.Range != nil {
		if src == "" {
			return m.Range.StartLine + 1, ""
		}
		lines := strings.Split(src, "\n")
		if m.Range.StartLine < 0 || m.Range.StartLine >= len(lines) {
			return m.Range.StartLine + 1, ""
		}
		end := min(max(m.Range.EndLine, m.Range.StartLine), len(lines)-1)
		return m.Range.StartLine + 1, strings.Join(lines[m.Range.StartLine:end+1], "\n")
	}
	if m.Start < 0 || m.End < m.Start || m.End > len(src) {
		return 0, ""
	}
	lineStart := strings.LastIndexByte(src[:m.Start], '\n') + 1
	lineEnd := len(src)
	if i := strings.IndexByte(src[m.End:], '\n'); i >= 0 {
		lineEnd = m.End + i
	}
	return strings.Count(src[:m.Start], "\n") + 1, src[lineStart:lineEnd]
}
