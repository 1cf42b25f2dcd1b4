package viewport

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"resultlens/internal/domain"
)

func hits(id string, n int) domain.MatchEvent {
	e := domain.MatchEvent{FileID: id, SourceSnapshot: "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"}
	for i := range n {
		e.Matches = append(e.Matches, domain.Match{Start: i, End: i + 1})
	}
	return e
}

// fixture rows with every header expanded:
//
//	0 lib/          8 web/
//	1   a.go        9   c.go
//	2-4   matches   10-11 matches
//	5   b.go        12 top.go (collapsed)
//	6-7   matches
func fixture(rowHeight int, expandedFiles domain.Set) *Layout {
	idx := domain.NewResultIndex().Append(
		hits("lib/a.go", 3),
		hits("lib/b.go", 2),
		hits("web/c.go", 2),
		hits("top.go", 1),
	)
	root := domain.BuildTree(idx, "", nil)
	m := domain.Metrics{RowHeight: rowHeight, LineHeight: rowHeight}
	rows := domain.Flatten(root, domain.NewSet("lib", "web"), expandedFiles, domain.FlattenOptions{Metrics: m})
	return NewLayout(rows)
}

func allFiles() domain.Set {
	return domain.NewSet("lib/a.go", "lib/b.go", "web/c.go")
}

func TestResolveStickyFixtures(t *testing.T) {
	l := fixture(1, allFiles())
	tests := []struct {
		name      string
		scrollTop int
		want      []StickyItem
	}{
		{"top of list", 0, []StickyItem{{0, 0, 100}, {1, 1, 99}}},
		{"inside first file", 3, []StickyItem{{0, 0, 100}, {1, 1, 99}}},
		{"next file takes the slot", 4, []StickyItem{{0, 0, 100}, {5, 1, 99}}},
		{"last child scrolled under folder", 7, []StickyItem{{0, 0, 100}}},
		{"second folder", 8, []StickyItem{{8, 0, 100}, {9, 1, 99}}},
		{"collapsed tail", 11, []StickyItem{{8, 0, 100}}},
		{"inactive header at top", 12, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSticky(l, tt.scrollTop, 5, 1)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveStickyCollisions(t *testing.T) {
	l := fixture(10, allFiles())

	t.Run("file slides under its folder", func(t *testing.T) {
		got := ResolveSticky(l, 65, 50, 10)
		assert.Equal(t, []StickyItem{{0, 0, 100}, {5, 5, 99}}, got)
	})

	t.Run("resting headers never overlap", func(t *testing.T) {
		for scrollTop := 0; scrollTop < l.TotalHeight(); scrollTop++ {
			got := ResolveSticky(l, scrollTop, 50, 10)
			for i := 1; i < len(got); i++ {
				if got[i].Top == l.Row(got[i].Row).Depth*10 {
					assert.GreaterOrEqual(t, got[i].Top, got[i-1].Top+10, "scrollTop %d", scrollTop)
				}
			}
		}
	})

	t.Run("folder pushed by next folder", func(t *testing.T) {
		got := ResolveSticky(l, 75, 50, 10)
		assert.Equal(t, []StickyItem{{0, -5, 100}}, got)
	})

	t.Run("folder fully replaced", func(t *testing.T) {
		got := ResolveSticky(l, 80, 50, 10)
		assert.Equal(t, []StickyItem{{8, 0, 100}, {9, 10, 99}}, got)
	})
}

func TestResolveStickyInactiveContext(t *testing.T) {
	// b.go collapsed: row 5 is an inactive header, its folder owns the top
	l := fixture(1, domain.NewSet("lib/a.go", "web/c.go"))

	got := ResolveSticky(l, 5, 5, 1)

	assert.Equal(t, []StickyItem{{0, 0, 100}}, got)
}

func TestResolveStickyEmpty(t *testing.T) {
	assert.Nil(t, ResolveSticky(NewLayout(nil), 0, 10, 1))
	assert.Nil(t, ResolveSticky(fixture(1, nil), 0, 10, 0))
}

func TestStickyHeight(t *testing.T) {
	assert.Equal(t, 20, StickyHeight([]StickyItem{{0, 0, 100}, {1, 10, 99}}, 10))
	assert.Equal(t, 5, StickyHeight([]StickyItem{{0, -5, 100}}, 10))
	assert.Zero(t, StickyHeight(nil, 10))
}

func TestResolveStickyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 25).Draw(t, "files")
		idx := domain.NewResultIndex()
		files := domain.NewSet()
		folders := domain.NewSet()
		for i := range n {
			dir := rapid.SampledFrom([]string{"", "a/", "a/b/", "a/b/c/", "d/", "d/e/"}).Draw(t, "dir")
			id := fmt.Sprintf("%sf%d.go", dir, i)
			idx = idx.Append(hits(id, rapid.IntRange(1, 4).Draw(t, "matches")))
			if rapid.Bool().Draw(t, "expandFile") {
				files.Add(id)
			}
		}
		for _, d := range []string{"a", "a/b", "a/b/c", "d", "d/e"} {
			if rapid.Bool().Draw(t, "expandFolder") {
				folders.Add(d)
			}
		}
		H := rapid.IntRange(1, 20).Draw(t, "header")
		m := domain.Metrics{RowHeight: H, LineHeight: H}
		rows := domain.Flatten(domain.BuildTree(idx, "", nil), folders, files, domain.FlattenOptions{Metrics: m})
		l := NewLayout(rows)
		vh := rapid.IntRange(H, 40*H).Draw(t, "viewport")
		scrollTop := rapid.IntRange(0, l.TotalHeight()).Draw(t, "scrollTop")

		items := ResolveSticky(l, scrollTop, vh, H)

		for i, it := range items {
			depth := l.Row(it.Row).Depth
			if !l.IsActiveHeader(it.Row) {
				t.Fatalf("row %d pinned without visible children", it.Row)
			}
			if it.ZIndex != 100-depth {
				t.Fatalf("row %d z-index %d at depth %d", it.Row, it.ZIndex, depth)
			}
			if it.Top+H <= 0 {
				t.Fatalf("row %d scrolled out at %d", it.Row, it.Top)
			}
			if i > 0 && items[i-1].Row >= it.Row {
				t.Fatalf("items not ordered by row: %+v", items)
			}
			for k := i - 1; k >= 0; k-- {
				pd := l.Row(items[k].Row).Depth
				if pd >= depth {
					continue
				}
				if it.Top <= items[k].Top || it.Top > items[k].Top+(depth-pd)*H {
					t.Fatalf("row %d top %d outside parent row %d top %d", it.Row, it.Top, items[k].Row, items[k].Top)
				}
				if items[k].ZIndex <= it.ZIndex {
					t.Fatalf("parent z-index %d not above %d", items[k].ZIndex, it.ZIndex)
				}
				// a header resting in its slot keeps a full slot below its parent;
				// only a header sliding out may overlap it
				if it.Top == depth*H && it.Top < items[k].Top+H {
					t.Fatalf("resting row %d at %d overlaps parent row %d at %d", it.Row, it.Top, items[k].Row, items[k].Top)
				}
				break
			}
		}
	})
}
