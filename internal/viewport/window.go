// Package viewport computes which flattened rows are visible for a scroll
// position and which headers stay pinned at the top. Units are whatever the
// row heights use: terminal lines for the TUI, pixels for other hosts.
package viewport

import (
	"sort"

	"resultlens/internal/domain"
)

// Window is an inclusive row range. An empty window has End < Start.
type Window struct {
	Start int
	End   int
}

// Len returns the number of rows in the window
func (w Window) Len() int {
	return max(0, w.End-w.Start+1)
}

// Contains reports whether row i lies in the window
func (w Window) Contains(i int) bool {
	return i >= w.Start && i <= w.End
}

// Layout holds the rows of one flatten pass and their prefix sums
type Layout struct {
	rows    []domain.FlatRow
	offsets []int // offsets[i] is the top of row i, offsets[n] the total height
	ends    []int // first row after each row's subtree
}

// NewLayout precomputes cumulative offsets from the row heights
func NewLayout(rows []domain.FlatRow) *Layout {
	offsets := make([]int, len(rows)+1)
	ends := make([]int, len(rows))
	var open []int
	for i, r := range rows {
		offsets[i+1] = offsets[i] + max(0, r.Height)
		for len(open) > 0 && rows[open[len(open)-1]].Depth >= r.Depth {
			ends[open[len(open)-1]] = i
			open = open[:len(open)-1]
		}
		open = append(open, i)
	}
	for _, i := range open {
		ends[i] = len(rows)
	}
	return &Layout{rows: rows, offsets: offsets, ends: ends}
}

// Len returns the number of rows
func (l *Layout) Len() int { return len(l.rows) }

// Rows returns the underlying rows
func (l *Layout) Rows() []domain.FlatRow { return l.rows }

// Row returns row i
func (l *Layout) Row(i int) domain.FlatRow { return l.rows[i] }

// TotalHeight is the height of every row stacked
func (l *Layout) TotalHeight() int { return l.offsets[len(l.rows)] }

// OffsetOf returns the top of row i
func (l *Layout) OffsetOf(i int) int { return l.offsets[i] }

// RowAt returns the row whose [offset, offset+height) interval contains y.
// y is clamped to the layout; -1 is returned for an empty layout.
func (l *Layout) RowAt(y int) int {
	n := len(l.rows)
	if n == 0 {
		return -1
	}
	if y <= 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return l.offsets[i+1] > y })
	return min(i, n-1)
}

// ClampScroll bounds scrollTop to [0, max(0, total-viewportHeight)]
func (l *Layout) ClampScroll(scrollTop, viewportHeight int) int {
	maxTop := max(0, l.TotalHeight()-viewportHeight)
	return max(0, min(scrollTop, maxTop))
}

// VisibleWindow returns the rows covering [scrollTop, scrollTop+viewportHeight]
// widened by overscan rows on both sides. It runs in O(log n).
func (l *Layout) VisibleWindow(scrollTop, viewportHeight, overscan int) Window {
	n := len(l.rows)
	if n == 0 {
		return Window{Start: 0, End: -1}
	}
	top := l.ClampScroll(scrollTop, viewportHeight)
	start := l.RowAt(top)
	end := l.RowAt(top + max(0, viewportHeight))
	overscan = max(0, overscan)
	return Window{
		Start: max(0, start-overscan),
		End:   min(n-1, end+overscan),
	}
}

// ScrollToReveal returns the scroll offset that brings row i fully into view,
// moving as little as possible. reserved is the height covered by pinned
// headers at the top of the viewport.
func (l *Layout) ScrollToReveal(i, scrollTop, viewportHeight, reserved int) int {
	if i < 0 || i >= len(l.rows) {
		return l.ClampScroll(scrollTop, viewportHeight)
	}
	top, bottom := l.offsets[i], l.offsets[i+1]
	switch {
	case top-reserved < scrollTop:
		scrollTop = top - reserved
	case bottom > scrollTop+viewportHeight:
		scrollTop = bottom - viewportHeight
	}
	return l.ClampScroll(scrollTop, viewportHeight)
}

// IsActiveHeader reports whether row i is a folder or file directly followed
// by one of its own children
func (l *Layout) IsActiveHeader(i int) bool {
	if i < 0 || i+1 >= len(l.rows) || !l.rows[i].IsHeader() {
		return false
	}
	return l.rows[i+1].Parent == i
}

// SubtreeEnd returns the first row after i whose depth is not deeper than
// row i's, or Len() when the subtree runs to the end
func (l *Layout) SubtreeEnd(i int) int {
	return l.ends[i]
}
