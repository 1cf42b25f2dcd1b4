package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultlens/internal/adapters/filesystem"
	"resultlens/internal/domain"
)

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "none.toml"))

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
root = "~/code"
view_mode = "flat"
hide_empty = true
exclude = ["**/*.min.js"]

[rows]
height = 2
line_height = 1
padding = 1
expand_multiline = false

[ingest]
auto_collapse = 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "~/code", cfg.Root)
	assert.Equal(t, domain.Metrics{RowHeight: 2, LineHeight: 1, Padding: 1}, cfg.Metrics())
	assert.Equal(t, 5, cfg.Overscan, "unset keys keep their defaults")

	opts := cfg.SessionOptions("/code")
	assert.Equal(t, domain.ViewFlat, opts.ViewMode)
	assert.True(t, opts.HideEmpty)
	assert.Equal(t, 5, opts.Ingest.AutoCollapse)

	eng := cfg.EngineOptions()
	assert.Equal(t, append(append([]string{}, filesystem.DefaultExclude...), "**/*.min.js"), eng.Exclude)
}

func TestLoadFromPathErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad toml", "root = ", "failed to parse config"},
		{"bad view mode", `view_mode = "grid"`, "view_mode must be tree or flat"},
		{"bad rows", "[rows]\nheight = 0", "row heights must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadFromPath(path)

			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Root = "/srv"
	cfg.Include = []string{"**/*.go"}

	require.NoError(t, Save(cfg, path))
	got, err := LoadFromPath(path)

	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RESULTLENS_ROOT", "/env/root")
	t.Setenv("RESULTLENS_DB", "/env/state.db")
	cfg := Default()

	cfg.ApplyEnv()

	assert.Equal(t, "/env/root", cfg.Root)
	assert.Equal(t, "/env/state.db", cfg.Database)
}

func TestLoadUsesConfigEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	require.NoError(t, os.WriteFile(path, []byte(`root = "/from/file"`), 0644))
	t.Setenv("RESULTLENS_CONFIG", path)
	t.Setenv("RESULTLENS_ROOT", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.Root)
}

func TestRootPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := &Config{Root: "~/src"}
	got, err := cfg.RootPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "src"), got)

	cfg.Root = ""
	got, err = cfg.RootPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
