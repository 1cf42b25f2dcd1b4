package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"resultlens/internal/application"
	"resultlens/internal/application/commands"
	"resultlens/internal/domain"
	"resultlens/internal/headless"
)

// RegisterWriteTools adds the tools that run searches or change the
// refinement stack. The stack is saved after every change.
func RegisterWriteTools(s *server.MCPServer, r *headless.Runner) {
	s.AddTool(queryTool("search",
		"Search every file under the root. Discards all refinement levels and replaces the results of level 0."), searchHandler(r))
	s.AddTool(queryTool("refine",
		"Push a refinement level that searches only the files matched by the deepest level. Fails when that level has no matches."), refineHandler(r))
	s.AddTool(closeLevelTool(), closeLevelHandler(r))
	s.AddTool(jumpLevelTool(), jumpLevelHandler(r))
	s.AddTool(resetOrderTool(), resetOrderHandler(r))
}

// --- search / refine ---

func queryTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("pattern",
			mcp.Description("Text or regular expression to search for"),
			mcp.Required(),
		),
		mcp.WithBoolean("regex",
			mcp.Description("Treat the pattern as a regular expression"),
		),
		mcp.WithBoolean("match_case",
			mcp.Description("Match case"),
		),
		mcp.WithBoolean("whole_word",
			mcp.Description("Match whole words only"),
		),
		mcp.WithString("include",
			mcp.Description("Comma separated globs of paths to search (e.g. **/*.go,docs/**)"),
		),
		mcp.WithString("exclude",
			mcp.Description("Comma separated globs of paths to skip"),
		),
	)
}

func queryFrom(req mcp.CallToolRequest) (domain.QueryParams, error) {
	q := domain.QueryParams{
		Pattern:   req.GetString("pattern", ""),
		IsRegex:   req.GetBool("regex", false),
		MatchCase: req.GetBool("match_case", false),
		WholeWord: req.GetBool("whole_word", false),
		Include:   splitGlobs(req.GetString("include", "")),
		Exclude:   splitGlobs(req.GetString("exclude", "")),
	}
	if q.Pattern == "" {
		return q, fmt.Errorf("pattern is required")
	}
	return q, nil
}

func splitGlobs(s string) []string {
	var out []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

func searchHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := queryFrom(req)
		if err != nil {
			return toolError(err)
		}
		err = r.Do(ctx, func(s *application.Session) error {
			s.TruncateTo(0)
			return nil
		})
		if err != nil {
			return toolError(err)
		}
		if err := r.Search(ctx, q); err != nil {
			return toolError(err)
		}
		return summary(ctx, r)
	}
}

func refineHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := queryFrom(req)
		if err != nil {
			return toolError(err)
		}
		if err := r.Refine(ctx, q); err != nil {
			if errors.Is(err, application.ErrNotFound) {
				return toolError(fmt.Errorf("nothing to refine: the deepest level has no matches"))
			}
			return toolError(err)
		}
		return summary(ctx, r)
	}
}

// --- close_level ---

func closeLevelTool() mcp.Tool {
	return mcp.NewTool("close_level",
		mcp.WithDescription("Discard the active refinement level and every deeper one. Level 0 cannot be closed."),
	)
}

func closeLevelHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		err := r.Do(ctx, func(s *application.Session) error {
			return commands.NewCloseLevelCommand(s).Execute(ctx)
		})
		if err != nil {
			return toolError(err)
		}
		return summary(ctx, r)
	}
}

// --- jump_level ---

func jumpLevelTool() mcp.Tool {
	return mcp.NewTool("jump_level",
		mcp.WithDescription("Make another refinement level active without discarding deeper levels."),
		mcp.WithNumber("level",
			mcp.Description("Index of the level, as listed by the levels tool"),
			mcp.Required(),
		),
	)
}

func jumpLevelHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		level := req.GetInt("level", -1)
		err := r.Do(ctx, func(s *application.Session) error {
			return commands.NewJumpLevelCommand(s, level).Execute(ctx)
		})
		if err != nil {
			return toolError(err)
		}
		return summary(ctx, r)
	}
}

// --- reset_order ---

func resetOrderTool() mcp.Tool {
	return mcp.NewTool("reset_order",
		mcp.WithDescription("Drop the custom file order of the root and go back to the natural order."),
	)
}

func resetOrderHandler(r *headless.Runner) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := r.ResetOrder(ctx); err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText("Custom order cleared"), nil
	}
}

// summary saves the stack and describes the active level
func summary(ctx context.Context, r *headless.Runner) (*mcp.CallToolResult, error) {
	if err := r.Save(ctx); err != nil {
		return toolError(err)
	}
	var sb strings.Builder
	err := r.Do(ctx, func(s *application.Session) error {
		l := s.Active()
		st := l.Stats()
		fmt.Fprintf(&sb, "Level %d: %d matches in %d files\n\n", l.Index, st.NumMatches, st.NumFilesWithMatches)
		headless.WriteLevels(&sb, s.Stack().Breadcrumbs())
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
