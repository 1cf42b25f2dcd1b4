package headless

import (
	"fmt"
	"io"
	"strings"

	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/refinement"
)

// MatchResult is one match of a FileResult
type MatchResult struct {
	Line int    `json:"line"`
	Text string `json:"text"`
	Hit  string `json:"match"`
}

// FileResult is every match of one file
type FileResult struct {
	Path    string        `json:"path"`
	Matches []MatchResult `json:"matches,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Report is the machine-readable result of the active level
type Report struct {
	Root   string                  `json:"root"`
	Level  int                     `json:"level"`
	Levels []refinement.Breadcrumb `json:"levels"`
	Stats  domain.Stats            `json:"stats"`
	Files  []FileResult            `json:"files"`
}

// Collect builds the report of the active level in display order
func Collect(s *application.Session) Report {
	r := Report{
		Root:   s.Root(),
		Level:  s.Stack().Active(),
		Levels: s.Stack().Breadcrumbs(),
		Stats:  s.Active().Stats(),
	}
	var cur *FileResult
	for _, row := range expandedRows(s, domain.ViewFlat) {
		switch n := row.Node.(type) {
		case *domain.File:
			r.Files = append(r.Files, FileResult{Path: n.RelPath})
			cur = &r.Files[len(r.Files)-1]
			if e := n.Err(); e != nil {
				cur.Error = e.Error()
			}
		case *domain.MatchRow:
			if cur != nil {
				cur.Matches = append(cur.Matches, MatchResult{Line: n.LineNo, Text: n.Line, Hit: n.Text})
			}
		case *domain.Folder:
		}
	}
	return r
}

// expandedRows flattens the active level with every node open, without
// touching the level's own expansion state
func expandedRows(s *application.Session, mode domain.ViewMode) []domain.FlatRow {
	tree := s.View().Tree
	folders, files := domain.NewSet(), domain.NewSet()
	domain.Walk(tree, func(n domain.Node, _ int) bool {
		switch v := n.(type) {
		case *domain.Folder:
			folders.Add(v.RelPath)
		case *domain.File:
			files.Add(v.FileID)
		case *domain.MatchRow:
		}
		return true
	})
	return domain.Flatten(tree, folders, files, domain.FlattenOptions{
		Mode:    mode,
		Metrics: domain.Metrics{RowHeight: 1, LineHeight: 1, ExpandMultiline: false},
		Order:   s.Order(),
	})
}

// WriteTree prints the active level. maxRows <= 0 prints everything.
func WriteTree(w io.Writer, s *application.Session, mode domain.ViewMode, maxRows int) {
	rows := expandedRows(s, mode)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, row := range rows {
		if maxRows > 0 && i >= maxRows {
			fmt.Fprintf(w, "... %d more rows\n", len(rows)-i)
			return
		}
		indent := strings.Repeat("  ", row.Depth)
		switch n := row.Node.(type) {
		case *domain.Folder:
			fmt.Fprintf(w, "%s%s/ (%d)\n", indent, n.Name, n.Stats.NumMatches)
		case *domain.File:
			name := n.Name
			if mode == domain.ViewFlat {
				name = n.RelPath
			}
			if e := n.Err(); e != nil {
				fmt.Fprintf(w, "%s%s ! %s\n", indent, name, e.Error())
			} else {
				fmt.Fprintf(w, "%s%s (%d)\n", indent, name, n.Stats.NumMatches)
			}
		case *domain.MatchRow:
			line, _, _ := strings.Cut(n.Line, "\n")
			fmt.Fprintf(w, "%s%d: %s\n", indent, n.LineNo, strings.TrimSpace(line))
		}
	}
}

// WriteLevels prints one line per refinement level
func WriteLevels(w io.Writer, crumbs []refinement.Breadcrumb) {
	for _, c := range crumbs {
		marker := " "
		if c.Active {
			marker = "*"
		}
		state := ""
		if c.Frozen {
			state = " frozen"
		}
		fmt.Fprintf(w, "%s %d  %-20s %d matches in %d files%s\n",
			marker, c.Index, c.Pattern, c.Stats.NumMatches, c.Stats.NumFilesWithMatches, state)
	}
}
