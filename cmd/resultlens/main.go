package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"resultlens/internal/adapters/editor"
	"resultlens/internal/adapters/filesystem"
	"resultlens/internal/adapters/sqlite"
	"resultlens/internal/adapters/tui"
	"resultlens/internal/application"
	"resultlens/internal/config"
	"resultlens/internal/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rootFlag := flag.String("root", cfg.Root, "directory to search")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: resultlens [-root dir] [pattern]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.Root = *rootFlag
	root, err := cfg.RootPath()
	if err != nil {
		return err
	}

	logFile, err := tea.LogToFile(logPath(), "resultlens")
	if err != nil {
		return err
	}
	defer logFile.Close()

	db := cfg.Database
	if db == "" {
		db = sqlite.DatabasePath()
	}
	store := sqlite.NewStore()
	if err := store.Open(db); err != nil {
		return err
	}
	defer store.Close()

	sched := tui.NewScheduler()
	session := application.NewSession(sched, cfg.SessionOptions(root))

	// The watcher reports through the app, which needs the watcher first
	var app *tui.App
	watcher, err := filesystem.NewWatcher(func(msg domain.Message) { app.Emit(msg) }, 0)
	if err != nil {
		return err
	}
	defer watcher.Close()

	deps := tui.Deps{
		Session: session,
		Sched:   sched,
		Engine:  filesystem.NewEngine(cfg.EngineOptions()),
		Store:   store,
		Editor:  editor.NewOpener(),
		Watcher: watcher,
	}
	if flag.NArg() > 0 {
		deps.Initial = cfg.Query(flag.Arg(0))
	}
	app = tui.NewApp(deps)

	p := tea.NewProgram(app, tea.WithAltScreen())
	sched.Bind(p.Send)

	_, err = p.Run()
	return err
}

// logPath keeps log output out of the alternate screen
func logPath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, _ := os.UserHomeDir()
		stateHome = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(stateHome, "resultlens")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "resultlens.log")
}
