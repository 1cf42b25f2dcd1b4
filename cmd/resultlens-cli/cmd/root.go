package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"resultlens/internal/adapters/filesystem"
	"resultlens/internal/adapters/sqlite"
	"resultlens/internal/config"
	"resultlens/internal/headless"
	"resultlens/internal/ports"
)

var (
	rootPath   string
	dbPath     string
	configPath string
	verbose    bool

	cfg    *config.Config
	store  ports.StateStore
	runner *headless.Runner
)

var rootCmd = &cobra.Command{
	Use:   "resultlens-cli",
	Short: "Search a directory tree and refine the results",
	Long: `resultlens-cli runs text searches over a directory tree and narrows
them down with refinement levels, each searching only the files the
previous level matched.

The refinement stack and custom file order are kept per search root, so
they can be picked up again by the terminal UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		if !verbose {
			log.SetOutput(io.Discard)
		}
		var err error
		if configPath != "" {
			cfg, err = config.LoadFromPath(configPath)
			if err == nil {
				cfg.ApplyEnv()
			}
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("root") {
			cfg.Root = rootPath
		}
		if cmd.Flags().Changed("db") {
			cfg.Database = dbPath
		}

		root, err := cfg.RootPath()
		if err != nil {
			return err
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return fmt.Errorf("search root %s is not a directory", root)
		}

		db := cfg.Database
		if db == "" {
			db = sqlite.DatabasePath()
		}
		s := sqlite.NewStore()
		if err := s.Open(db); err != nil {
			return err
		}
		store = s

		engine := filesystem.NewEngine(cfg.EngineOptions())
		runner = headless.New(cmd.Context(), cfg.SessionOptions(root), engine, store)
		return runner.LoadOrder(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		closeRunner()
		return nil
	},
}

// Execute runs the root command
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	closeRunner()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func closeRunner() {
	if runner != nil {
		runner.Close()
		runner = nil
	}
	if store != nil {
		_ = store.Close()
		store = nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootPath, "root", "r", config.DefaultRootPath, "directory to search")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "state database (default $XDG_DATA_HOME/resultlens/state.db)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.FilePath()+")")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log engine and store activity to stderr")
}

// GetRunner returns the initialized runner
func GetRunner() *headless.Runner {
	return runner
}
