package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func ev(id string, n int) MatchEvent {
	e := MatchEvent{FileID: id, SourceSnapshot: "foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo foo"}
	for i := range n {
		e.Matches = append(e.Matches, Match{Start: i * 4, End: i*4 + 3})
	}
	return e
}

func TestBuildTree(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		idx := NewResultIndex().Append(MatchEvent{FileID: "a.ts", Matches: []Match{{Start: 0, End: 3}}, SourceSnapshot: "foo"})

		root := BuildTree(idx, "/repo", nil)

		require.Len(t, root.Children, 1)
		file, ok := root.Children[0].(*File)
		require.True(t, ok)
		assert.Equal(t, "a.ts", file.Name)
		assert.Equal(t, 1, file.Stats.NumMatches)
		assert.Equal(t, Stats{NumMatches: 1, NumFilesWithMatches: 1}, root.Stats)
	})

	t.Run("folders aggregate descendant stats", func(t *testing.T) {
		idx := NewResultIndex().Append(
			ev("/repo/src/a.go", 2),
			ev("/repo/src/pkg/b.go", 3),
			ev("/repo/README.md", 1),
			MatchEvent{FileID: "/repo/src/broken.go", Err: &ErrorInfo{Message: "read failed"}},
		)

		root := BuildTree(idx, "/repo", nil)

		assert.Equal(t, Stats{NumMatches: 6, NumFilesWithMatches: 3}, root.Stats)
		src, ok := root.Children[0].(*Folder)
		require.True(t, ok, "folders sort before files")
		assert.Equal(t, "src", src.RelPath)
		assert.Equal(t, Stats{NumMatches: 5, NumFilesWithMatches: 2}, src.Stats)
		assert.Len(t, Files(root), 4, "error entries still appear")
	})

	t.Run("separators and uris are normalized", func(t *testing.T) {
		idx := NewResultIndex().Append(
			ev("file:///repo/dir/x.go", 1),
			ev(`dir\y.go`, 1),
		)

		root := BuildTree(idx, "/repo", nil)

		require.Len(t, root.Children, 1)
		dir := root.Children[0].(*Folder)
		assert.Equal(t, []string{"dir/x.go", "dir/y.go"}, SiblingOrder(dir))
	})

	t.Run("identifiers outside the root keep the raw id", func(t *testing.T) {
		idx := NewResultIndex().Append(ev("/elsewhere/z.go", 1))

		root := BuildTree(idx, "/repo", nil)

		require.Len(t, root.Children, 1)
		file := root.Children[0].(*File)
		assert.Equal(t, "/elsewhere/z.go", file.RelPath)
		assert.Equal(t, "/elsewhere/z.go", file.Name)
	})

	t.Run("duplicate locations share one leaf", func(t *testing.T) {
		idx := NewResultIndex().Append(ev("/repo/a.go", 1), ev("a.go", 2))

		root := BuildTree(idx, "/repo", nil)

		require.Len(t, root.Children, 1)
		assert.Equal(t, Stats{NumMatches: 3, NumFilesWithMatches: 1}, root.Stats)
	})
}

func TestSortTree(t *testing.T) {
	idx := NewResultIndex().Append(ev("b.go", 1), ev("a.go", 1), ev("c.go", 1), ev("z/x.go", 1))

	tests := []struct {
		name  string
		order OrderOverride
		want  []string
	}{
		{"alphabetical", nil, []string{"z", "a.go", "b.go", "c.go"}},
		{"ranked first", OrderOverride{"c.go": 0, "a.go": 1}, []string{"z", "c.go", "a.go", "b.go"}},
		{"folders stay first", OrderOverride{"a.go": 0, "z": 5}, []string{"z", "a.go", "b.go", "c.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := BuildTree(idx, "", tt.order)
			assert.Equal(t, tt.want, SiblingOrder(root))
		})
	}
}

func TestPrune(t *testing.T) {
	idx := NewResultIndex().Append(
		ev("src/a.go", 2),
		MatchEvent{FileID: "src/empty/e.go", Err: &ErrorInfo{Message: "boom"}},
		ev("b.go", 1),
	)
	root := BuildTree(idx, "", nil)

	pruned := Prune(root, HasMatches)

	assert.Len(t, Files(pruned), 2)
	src := pruned.Children[0].(*Folder)
	assert.Len(t, src.Children, 1, "empty subtree removed")
	assert.Equal(t, Stats{NumMatches: 3, NumFilesWithMatches: 2}, pruned.Stats)
	assert.Len(t, Files(root), 3, "input tree untouched")

	none := Prune(root, func(*File) bool { return false })
	assert.Empty(t, none.Children)
	assert.Equal(t, Stats{}, none.Stats)
}

func TestFolderStatsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		paths := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-c](/[a-c]){0,3}\.go`), 1, 20, rapid.ID[string]).Draw(t, "paths")
		idx := NewResultIndex()
		for _, p := range paths {
			idx = idx.Append(ev(p, rapid.IntRange(0, 5).Draw(t, "n")))
		}

		root := BuildTree(idx, "", nil)

		var check func(f *Folder) Stats
		check = func(f *Folder) Stats {
			var sum Stats
			for _, c := range f.Children {
				switch v := c.(type) {
				case *Folder:
					sum = sum.Add(check(v))
				case *File:
					if v.HasMatches() {
						sum = sum.Add(v.Stats)
					}
				}
			}
			if sum != f.Stats {
				t.Fatalf("folder %q stats %+v, children sum %+v", f.RelPath, f.Stats, sum)
			}
			return sum
		}
		check(root)
		if root.Stats != idx.Stats() {
			t.Fatalf("root %+v, index %+v", root.Stats, idx.Stats())
		}
	})
}
