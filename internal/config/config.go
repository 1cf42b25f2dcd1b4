package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"resultlens/internal/adapters/filesystem"
	"resultlens/internal/application"
	"resultlens/internal/domain"
	"resultlens/internal/ingest"
)

const DefaultRootPath = "."

// Config is the merged configuration of every host
type Config struct {
	Root      string   `toml:"root"`
	Database  string   `toml:"database"`
	ViewMode  string   `toml:"view_mode"`
	HideEmpty bool     `toml:"hide_empty"`
	Overscan  int      `toml:"overscan"`
	Include   []string `toml:"include,omitempty"`
	Exclude   []string `toml:"exclude,omitempty"`

	Rows   RowSettings    `toml:"rows"`
	Ingest IngestSettings `toml:"ingest"`
	Engine EngineSettings `toml:"engine"`
}

// RowSettings are the row metrics of the results list
type RowSettings struct {
	Height          int  `toml:"height"`
	LineHeight      int  `toml:"line_height"`
	Padding         int  `toml:"padding"`
	ExpandMultiline bool `toml:"expand_multiline"`
}

// IngestSettings tune result ingestion
type IngestSettings struct {
	AutoCollapse int  `toml:"auto_collapse"`
	AutoExpand   bool `toml:"auto_expand"`
}

// EngineSettings tune the filesystem engine
type EngineSettings struct {
	Workers     int   `toml:"workers"`
	BatchSize   int   `toml:"batch_size"`
	MaxFileSize int64 `toml:"max_file_size"`
}

// Default returns the built-in configuration
func Default() *Config {
	m := domain.DefaultMetrics()
	return &Config{
		Root:     DefaultRootPath,
		ViewMode: domain.ViewTree.String(),
		Overscan: 5,
		Rows: RowSettings{
			Height:          m.RowHeight,
			LineHeight:      m.LineHeight,
			Padding:         m.Padding,
			ExpandMultiline: m.ExpandMultiline,
		},
		Ingest: IngestSettings{AutoCollapse: ingest.DefaultAutoCollapse},
		Engine: EngineSettings{BatchSize: 50},
	}
}

// FilePath returns the location of the config file
func FilePath() string {
	if env := os.Getenv("RESULTLENS_CONFIG"); env != "" {
		return env
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "resultlens", "config.toml")
}

// Load reads the config file, when present, over the defaults and applies
// the environment on top
func Load() (*Config, error) {
	cfg, err := LoadFromPath(FilePath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFromPath reads path over the defaults. A missing file yields the
// defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides the root and database from RESULTLENS_ROOT and
// RESULTLENS_DB
func (c *Config) ApplyEnv() {
	if env := os.Getenv("RESULTLENS_ROOT"); env != "" {
		c.Root = env
	}
	if env := os.Getenv("RESULTLENS_DB"); env != "" {
		c.Database = env
	}
}

// Validate checks values the hosts cannot recover from
func (c *Config) Validate() error {
	if m := strings.ToLower(c.ViewMode); m != "" && m != "tree" && m != "flat" {
		return fmt.Errorf("view_mode must be tree or flat, got %q", c.ViewMode)
	}
	if c.Rows.Height < 1 || c.Rows.LineHeight < 1 {
		return errors.New("row heights must be positive")
	}
	if c.Overscan < 0 || c.Rows.Padding < 0 {
		return errors.New("overscan and padding must not be negative")
	}
	return nil
}

// RootPath returns the absolute search root, expanding ~
func (c *Config) RootPath() (string, error) {
	root := c.Root
	if root == "" {
		root = DefaultRootPath
	}
	if strings.HasPrefix(root, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		root = filepath.Join(home, root[1:])
	}
	return filepath.Abs(root)
}

// Metrics returns the configured row metrics
func (c *Config) Metrics() domain.Metrics {
	return domain.Metrics{
		RowHeight:       c.Rows.Height,
		LineHeight:      c.Rows.LineHeight,
		Padding:         c.Rows.Padding,
		ExpandMultiline: c.Rows.ExpandMultiline,
	}
}

// SessionOptions returns the options of a session rooted at root
func (c *Config) SessionOptions(root string) application.Options {
	return application.Options{
		Root:      domain.NormalizeID(filepath.ToSlash(root)),
		Metrics:   c.Metrics(),
		Overscan:  c.Overscan,
		HideEmpty: c.HideEmpty,
		ViewMode:  domain.ParseViewMode(c.ViewMode),
		Ingest: ingest.Options{
			AutoCollapse: c.Ingest.AutoCollapse,
			AutoExpand:   c.Ingest.AutoExpand,
		},
	}
}

// EngineOptions returns the filesystem engine options
func (c *Config) EngineOptions() filesystem.EngineOptions {
	opts := filesystem.EngineOptions{
		Workers:     c.Engine.Workers,
		BatchSize:   c.Engine.BatchSize,
		MaxFileSize: c.Engine.MaxFileSize,
	}
	if len(c.Exclude) > 0 {
		opts.Exclude = append(append([]string{}, filesystem.DefaultExclude...), c.Exclude...)
	}
	return opts
}

// Query returns a query carrying the configured include/exclude globs
func (c *Config) Query(pattern string) domain.QueryParams {
	return domain.QueryParams{
		Pattern: pattern,
		Include: c.Include,
	}
}
