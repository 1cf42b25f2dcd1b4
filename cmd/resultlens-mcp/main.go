package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"resultlens/internal/adapters/filesystem"
	mcpadapter "resultlens/internal/adapters/mcp"
	"resultlens/internal/adapters/sqlite"
	"resultlens/internal/config"
	"resultlens/internal/headless"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("resultlens-mcp: %v", err)
	}
	rootFlag := flag.String("root", cfg.Root, "directory to search")
	dbFlag := flag.String("db", cfg.Database, "state database")
	flag.Parse()

	cfg.Root = *rootFlag
	root, err := cfg.RootPath()
	if err != nil {
		log.Fatalf("resultlens-mcp: %v", err)
	}

	db := *dbFlag
	if db == "" {
		db = sqlite.DatabasePath()
	}
	store := sqlite.NewStore()
	if err := store.Open(db); err != nil {
		log.Fatalf("resultlens-mcp: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := headless.New(ctx, cfg.SessionOptions(root), filesystem.NewEngine(cfg.EngineOptions()), store)
	defer runner.Close()
	if err := runner.LoadOrder(ctx); err != nil {
		log.Printf("resultlens-mcp: %v", err)
	}
	if _, err := runner.Restore(ctx); err != nil {
		log.Printf("resultlens-mcp: restore: %v", err)
	}

	mcpServer := server.NewMCPServer(
		"resultlens-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterReadTools(mcpServer, runner)
	mcpadapter.RegisterWriteTools(mcpServer, runner)

	if err := server.ServeStdio(mcpServer); err != nil {
		log.Printf("resultlens-mcp: %v", err)
	}
}
