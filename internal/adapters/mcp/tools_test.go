package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultlens/internal/adapters/filesystem"
	"resultlens/internal/application"
	"resultlens/internal/headless"
)

func newRunner(t *testing.T) *headless.Runner {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.go":     "package a\n\n// foo bar\nfunc foo() {}\n",
		"pkg/b.go": "package pkg\n\nvar foo = 1\n",
	}
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	engine := filesystem.NewEngine(filesystem.EngineOptions{Workers: 2})
	r := headless.New(context.Background(), application.Options{Root: root}, engine, nil)
	t.Cleanup(r.Close)
	return r
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSearchAndRefineTools(t *testing.T) {
	r := newRunner(t)

	res := call(t, searchHandler(r), map[string]any{"pattern": "foo"})
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Level 0: 3 matches in 2 files")

	res = call(t, refineHandler(r), map[string]any{"pattern": "bar"})
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Level 1: 1 matches in 1 files")

	res = call(t, levelsHandler(r), nil)
	assert.Contains(t, text(t, res), "* 1  bar")

	res = call(t, treeHandler(r), map[string]any{"flat": true})
	assert.Contains(t, text(t, res), "a.go (1)\n  3: // foo bar\n")

	res = call(t, resultsHandler(r), nil)
	var report headless.Report
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &report))
	require.Len(t, report.Files, 1)
	assert.Equal(t, "bar", report.Files[0].Matches[0].Hit)

	res = call(t, closeLevelHandler(r), nil)
	assert.Contains(t, text(t, res), "Level 0: 3 matches in 2 files")
}

func TestToolErrors(t *testing.T) {
	r := newRunner(t)

	res := call(t, searchHandler(r), map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "pattern is required")

	res = call(t, refineHandler(r), map[string]any{"pattern": "foo"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "nothing to refine")

	res = call(t, closeLevelHandler(r), nil)
	assert.True(t, res.IsError)

	res = call(t, jumpLevelHandler(r), map[string]any{"level": 3})
	assert.True(t, res.IsError)
}

func TestSplitGlobs(t *testing.T) {
	assert.Nil(t, splitGlobs(""))
	assert.Equal(t, []string{"**/*.go", "docs/**"}, splitGlobs("**/*.go, docs/** ,"))
}
