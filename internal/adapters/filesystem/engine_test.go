package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultlens/internal/domain"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/main.go":        "package main\n\nfunc main() { foo(); Foo() }\n",
		"src/util/helper.go": "package util\n\n// foo helps\nfunc bar() {}\n",
		"docs/readme.md":     "nothing here\n",
		".git/config":        "foo\n",
		"bin/tool":           "foo\x00\x01binary",
	})
	return root
}

type recorder struct {
	msgs []domain.Message
}

func (r *recorder) emit(m domain.Message) { r.msgs = append(r.msgs, m) }

func (r *recorder) batches() []domain.MatchBatch {
	var out []domain.MatchBatch
	for _, m := range r.msgs {
		if b, ok := m.(domain.MatchBatch); ok {
			out = append(out, b)
		}
	}
	return out
}

func (r *recorder) events() map[string]domain.MatchEvent {
	out := map[string]domain.MatchEvent{}
	for _, b := range r.batches() {
		for _, e := range b.Events {
			out[e.FileID] = e
		}
	}
	return out
}

func (r *recorder) last() domain.StatusUpdate {
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if s, ok := r.msgs[i].(domain.StatusUpdate); ok {
			return s
		}
	}
	return domain.StatusUpdate{}
}

func id(root, rel string) string {
	return domain.NormalizeID(filepath.ToSlash(filepath.Join(root, filepath.FromSlash(rel))))
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name  string
		query domain.QueryParams
		input string
		want  int
	}{
		{"literal ignores case", domain.QueryParams{Pattern: "a.b"}, "a.b A.B axb", 2},
		{"match case", domain.QueryParams{Pattern: "Foo", MatchCase: true}, "foo Foo", 1},
		{"whole word", domain.QueryParams{Pattern: "foo", WholeWord: true}, "foo food foo_ foo.", 2},
		{"regex", domain.QueryParams{Pattern: `f\w+`, IsRegex: true}, "foo far", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := Compile(tt.query)
			require.NoError(t, err)
			assert.Len(t, re.FindAllStringIndex(tt.input, -1), tt.want)
		})
	}

	_, err := Compile(domain.QueryParams{Pattern: "(", IsRegex: true})
	assert.Error(t, err)
}

func TestStartSearch(t *testing.T) {
	root := setupTree(t)
	e := NewEngine(EngineOptions{Workers: 2, BatchSize: 1})
	rec := &recorder{}

	err := e.StartSearch(context.Background(), root, domain.QueryParams{Pattern: "foo"}, rec.emit)
	require.NoError(t, err)

	_, ok := rec.msgs[0].(domain.InitialData)
	assert.True(t, ok, "first message is InitialData")

	batches := rec.batches()
	require.NotEmpty(t, batches)
	assert.True(t, batches[0].IsNewSearch)
	for _, b := range batches[1:] {
		assert.False(t, b.IsNewSearch)
	}

	events := rec.events()
	assert.Len(t, events, 2, "binary, hidden and non-matching files are skipped")
	main := events[id(root, "src/main.go")]
	assert.Len(t, main.Matches, 2)
	assert.Equal(t, "foo", main.Text(main.Matches[0]))
	assert.Equal(t, "Foo", main.Text(main.Matches[1]))

	status := rec.last()
	assert.False(t, status.Running)
	assert.Equal(t, 4, status.Total, "hidden folders are not walked")
	assert.Equal(t, 4, status.Completed)
	assert.Equal(t, 3, status.NumMatches)
	assert.Equal(t, 2, status.NumFilesWithMatches)
}

func TestStartSearchNoMatchesStillStartsNewSearch(t *testing.T) {
	root := setupTree(t)
	rec := &recorder{}

	require.NoError(t, NewEngine(EngineOptions{}).StartSearch(context.Background(), root, domain.QueryParams{Pattern: "zzz"}, rec.emit))

	batches := rec.batches()
	require.Len(t, batches, 1)
	assert.True(t, batches[0].IsNewSearch)
	assert.Empty(t, batches[0].Events)
}

func TestStartSearchGlobsAndScope(t *testing.T) {
	root := setupTree(t)
	e := NewEngine(EngineOptions{})

	tests := []struct {
		name  string
		query domain.QueryParams
		want  []string
	}{
		{"include", domain.QueryParams{Pattern: "foo", Include: []string{"src/util/**"}}, []string{"src/util/helper.go"}},
		{"exclude", domain.QueryParams{Pattern: "foo", Exclude: []string{"**/util/**"}}, []string{"src/main.go"}},
		{"scope", domain.QueryParams{Pattern: "foo", Scope: []string{id(root, "src/main.go"), id(root, "docs/readme.md")}}, []string{"src/main.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			require.NoError(t, e.StartSearch(context.Background(), root, tt.query, rec.emit))

			var got []string
			for fileID := range rec.events() {
				rel, _ := domain.ResolvePath(domain.NormalizeID(filepath.ToSlash(root)), fileID)
				got = append(got, rel)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestExcludeFile(t *testing.T) {
	root := setupTree(t)
	e := NewEngine(EngineOptions{})
	e.ExcludeFile(id(root, "src/main.go"))
	rec := &recorder{}

	require.NoError(t, e.StartSearch(context.Background(), root, domain.QueryParams{Pattern: "foo"}, rec.emit))

	events := rec.events()
	assert.Len(t, events, 1)
	assert.Contains(t, events, id(root, "src/util/helper.go"))
}

func TestScanReportsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	e := NewEngine(EngineOptions{})
	rec := &recorder{}
	missing := id(root, "gone.go")

	require.NoError(t, e.StartSearch(context.Background(), root, domain.QueryParams{Pattern: "x", Scope: []string{missing}}, rec.emit))

	ev, ok := rec.events()[missing]
	require.True(t, ok)
	require.NotNil(t, ev.Err)
	assert.Equal(t, "ENOENT", ev.Err.Code)
	assert.Equal(t, 1, rec.last().NumFilesWithErrors)
}

func TestStartSearchCancelled(t *testing.T) {
	root := setupTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}

	err := NewEngine(EngineOptions{}).StartSearch(ctx, root, domain.QueryParams{Pattern: "foo"}, rec.emit)

	assert.NoError(t, err)
}

func TestReplace(t *testing.T) {
	root := setupTree(t)
	e := NewEngine(EngineOptions{})
	var done []domain.ReplacementComplete
	emit := func(m domain.Message) {
		if r, ok := m.(domain.ReplacementComplete); ok {
			done = append(done, r)
		}
	}

	q := domain.QueryParams{Pattern: "foo", Replace: "bar", MatchCase: true}
	err := e.Replace(context.Background(), root, q, []string{id(root, "src/main.go"), id(root, "docs/readme.md")}, emit)

	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, domain.ReplacementComplete{TotalReplacements: 1, TotalFilesChanged: 1}, done[0])
	data, err := os.ReadFile(filepath.Join(root, "src", "main.go"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "bar(); Foo()"))
}

func TestReplaceRegexGroups(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "key=value\n"})
	q := domain.QueryParams{Pattern: `(\w+)=(\w+)`, Replace: "$2=$1", IsRegex: true}

	require.NoError(t, NewEngine(EngineOptions{}).Replace(context.Background(), root, q, []string{"a.txt"}, func(domain.Message) {}))

	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "value=key\n", string(data))
}

func TestReplaceReportsMissingFiles(t *testing.T) {
	root := t.TempDir()
	var got domain.ReplacementComplete
	err := NewEngine(EngineOptions{}).Replace(context.Background(), root, domain.QueryParams{Pattern: "x"}, []string{"nope.txt"}, func(m domain.Message) {
		got = m.(domain.ReplacementComplete)
	})

	assert.Error(t, err)
	assert.Zero(t, got.TotalFilesChanged)
}
