package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultIndex(t *testing.T) {
	t.Run("append keeps first-seen order", func(t *testing.T) {
		idx := NewResultIndex().Append(ev("b", 1), ev("a", 2), ev("b", 3))

		assert.Equal(t, []string{"b", "a"}, idx.Keys())
		assert.Equal(t, 4, idx.MatchCount("b"))
		assert.Equal(t, Stats{NumMatches: 6, NumFilesWithMatches: 2}, idx.Stats())
	})

	t.Run("mutations leave the receiver untouched", func(t *testing.T) {
		base := NewResultIndex().Append(ev("a", 1))

		grown := base.Append(ev("a", 1), ev("c", 1))
		shrunk := grown.Delete("a")

		assert.Equal(t, 1, base.MatchCount("a"))
		assert.Equal(t, 1, base.Len())
		assert.Equal(t, 2, grown.MatchCount("a"))
		assert.Equal(t, []string{"c"}, shrunk.Keys())
		assert.Equal(t, []string{"a", "c"}, grown.Keys())
	})

	t.Run("snapshot update", func(t *testing.T) {
		base := NewResultIndex().Append(ev("a", 1))

		next := base.WithSnapshot("a", "bar")
		same := base.WithSnapshot("missing", "x")

		got, _ := next.Get("a")
		assert.Equal(t, "bar", got[0].SourceSnapshot)
		old, _ := base.Get("a")
		assert.NotEqual(t, "bar", old[0].SourceSnapshot)
		assert.Same(t, base, same)
	})

	t.Run("errors without matches do not count", func(t *testing.T) {
		idx := NewResultIndex().Append(MatchEvent{FileID: "x", Err: &ErrorInfo{Message: "denied", Code: "EACCES"}})

		assert.True(t, idx.HasError("x"))
		assert.Equal(t, Stats{}, idx.Stats())
		got, _ := idx.Get("x")
		assert.Equal(t, "EACCES: denied", got[0].Err.Error())
	})

	t.Run("nil index is empty", func(t *testing.T) {
		var idx *ResultIndex
		assert.Zero(t, idx.Len())
		assert.Empty(t, idx.Keys())
	})
}

func TestMatchContext(t *testing.T) {
	e := MatchEvent{SourceSnapshot: "alpha\nbeta gamma\ndelta"}

	tests := []struct {
		name     string
		m        Match
		wantLine int
		wantText string
	}{
		{"first line", Match{Start: 0, End: 5}, 1, "alpha"},
		{"mid line", Match{Start: 11, End: 16}, 2, "beta gamma"},
		{"spanning", Match{Start: 6, End: 19}, 2, "beta gamma\ndelta"},
		{"range", Match{Range: &LineRange{StartLine: 2, EndLine: 2, EndCol: 3}}, 3, "delta"},
		{"out of bounds", Match{Start: 40, End: 50}, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, text := e.Context(tt.m)
			if line != tt.wantLine || text != tt.wantText {
				t.Errorf("Context() = %d %q, want %d %q", line, text, tt.wantLine, tt.wantText)
			}
		})
	}
}
