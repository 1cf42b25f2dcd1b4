package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/headless"
)

// RegisterReadTools adds the tools that inspect the current results
func RegisterReadTools(s *server.MCPServer, r *headless.Runner) {
	s.AddTool(levelsTool(), levelsHandler(r))
	s.AddTool(treeTool(), treeHandler(r))
	s.AddTool(resultsTool(), resultsHandler(r))
}

// --- levels ---

func levelsTool() mcp.Tool {
	return mcp.NewTool("levels",
		mcp.WithDescription("List the refinement levels. The active level is marked with *. Each level searches only the files matched by the level before it."),
	)
}

func levelsHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var sb strings.Builder
		err := r.Do(ctx, func(s *application.Session) error {
			headless.WriteLevels(&sb, s.Stack().Breadcrumbs())
			return nil
		})
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- tree ---

func treeTool() mcp.Tool {
	return mcp.NewTool("tree",
		mcp.WithDescription("Display the results of the active level as a folder tree with numbered match lines."),
		mcp.WithBoolean("flat",
			mcp.Description("List files by path instead of nesting them in folders"),
		),
		mcp.WithNumber("max_rows",
			mcp.Description("Stop after this many rows. Omit or 0 for everything."),
		),
	)
}

func treeHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode := domain.ViewTree
		if req.GetBool("flat", false) {
			mode = domain.ViewFlat
		}
		maxRows := req.GetInt("max_rows", 0)

		var sb strings.Builder
		err := r.Do(ctx, func(s *application.Session) error {
			headless.WriteTree(&sb, s, mode, maxRows)
			st := s.Active().Stats()
			fmt.Fprintf(&sb, "\n%d matches in %d files\n", st.NumMatches, st.NumFilesWithMatches)
			return nil
		})
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- results ---

func resultsTool() mcp.Tool {
	return mcp.NewTool("results",
		mcp.WithDescription("Return the results of the active level as JSON: files in display order with line, text and matched substring per match."),
	)
}

func resultsHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var report headless.Report
		err := r.Do(ctx, func(s *application.Session) error {
			report = headless.Collect(s)
			return nil
		})
		if err != nil {
			return toolError(err)
		}
		data, err := json.Marshal(report)
		if err != nil {
			return toolError(fmt.Errorf("encoding results: %w", err))
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
