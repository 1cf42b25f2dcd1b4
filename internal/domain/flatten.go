package domain

import (
	"slices"
	"strings"
)

// Metrics drive row height estimation
type Metrics struct {
	RowHeight       int  // headers and single-line matches
	LineHeight      int  // per line of an expanded multi-line match
	Padding         int  // added once to expanded multi-line matches
	ExpandMultiline bool // false renders every match as one row
}

// DefaultMetrics suit a character grid: one cell per line
func DefaultMetrics() Metrics {
	return Metrics{RowHeight: 1, LineHeight: 1, Padding: 0, ExpandMultiline: true}
}

// FlattenOptions select the view mode, metrics and sibling order
type FlattenOptions struct {
	Mode    ViewMode
	Metrics Metrics
	Order   OrderOverride
}

// FlatRow is one renderable row. Offset is the row's distance from the top
// of the list; Parent is the index of the enclosing row or -1.
type FlatRow struct {
	Node   Node
	Depth  int
	Offset int
	Height int
	Parent int
}

// IsHeader reports whether the row can own children (folder or file)
func (r FlatRow) IsHeader() bool {
	_, isMatch := r.Node.(*MatchRow)
	return !isMatch
}

// Flatten walks the tree depth-first and emits the visible rows.
// The root folder itself is not emitted. Flatten is a pure function of its
// inputs; calling it twice yields identical rows.
func Flatten(root *Folder, expandedFolders, expandedFiles Set, opts FlattenOptions) []FlatRow {
	m := opts.Metrics
	if m.RowHeight <= 0 {
		m = DefaultMetrics()
	}
	f := flattener{metrics: m, expandedFiles: expandedFiles, expandedFolders: expandedFolders}
	if root == nil {
		return nil
	}
	if opts.Mode == ViewFlat {
		files := Files(root)
		slices.SortStableFunc(files, func(a, b *File) int {
			return compareFlatPaths(a.RelPath, b.RelPath, opts.Order)
		})
		for _, file := range files {
			f.file(file, 0, -1)
		}
		return f.rows
	}
	f.folder(root, 0, -1)
	return f.rows
}

type flattener struct {
	metrics         Metrics
	expandedFolders Set
	expandedFiles   Set
	rows            []FlatRow
	offset          int
}

func (f *flattener) emit(n Node, depth, height, parent int) int {
	f.rows = append(f.rows, FlatRow{Node: n, Depth: depth, Offset: f.offset, Height: height, Parent: parent})
	f.offset += height
	return len(f.rows) - 1
}

func (f *flattener) folder(dir *Folder, depth, parent int) {
	for _, c := range dir.Children {
		switch v := c.(type) {
		case *Folder:
			idx := f.emit(v, depth, f.metrics.RowHeight, parent)
			if f.expandedFolders.Has(v.RelPath) {
				f.folder(v, depth+1, idx)
			}
		case *File:
			f.file(v, depth, parent)
		case *MatchRow:
		}
	}
}

func (f *flattener) file(file *File, depth, parent int) {
	idx := f.emit(file, depth, f.metrics.RowHeight, parent)
	if !file.HasMatches() || !f.expandedFiles.Has(file.FileID) {
		return
	}
	n := 0
	for _, ev := range file.Results {
		for _, m := range ev.Matches {
			lineNo, line := ev.Context(m)
			row := &MatchRow{
				FileID: file.FileID,
				Index:  n,
				Match:  m,
				Text:   ev.Text(m),
				LineNo: lineNo,
				Line:   line,
				Lines:  ev.LineSpan(m),
			}
			f.emit(row, depth+1, f.matchHeight(row.Lines), idx)
			n++
		}
	}
}

func (f *flattener) matchHeight(newlines int) int {
	if newlines == 0 || !f.metrics.ExpandMultiline {
		return f.metrics.RowHeight
	}
	return (newlines+1)*f.metrics.LineHeight + f.metrics.Padding
}

// compareFlatPaths orders paths segment by segment. Ranks only break ties
// at the first differing segment when both sides are siblings of the same
// kind, since a rank is relative to its sibling group.
func compareFlatPaths(a, b string, order OrderOverride) int {
	sa, sb := strings.Split(a, "/"), strings.Split(b, "/")
	i := 0
	for i < len(sa) && i < len(sb) && sa[i] == sb[i] {
		i++
	}
	if i == len(sa) || i == len(sb) {
		return len(sa) - len(sb)
	}
	if aDir, bDir := i < len(sa)-1, i < len(sb)-1; aDir == bDir {
		ra := order.Rank(strings.Join(sa[:i+1], "/"))
		rb := order.Rank(strings.Join(sb[:i+1], "/"))
		if ra != rb {
			if ra < rb {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(sa[i], sb[i])
}
