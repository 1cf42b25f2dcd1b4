package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resultlens/internal/domain"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Open(filepath.Join(t.TempDir(), "state.db")))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return s
}

func TestStoreOrderRoundTrip(t *testing.T) {
	s := openStore(t)

	got, err := s.LoadOrder("/repo")
	require.NoError(t, err)
	assert.Empty(t, got)

	order := domain.OrderOverride{"src": 0, "lib": 1, "src/b.go": 0, "src/a.go": 1}
	require.NoError(t, s.SaveOrder("/repo", order))
	require.NoError(t, s.SaveOrder("/other", domain.OrderOverride{"x.go": 3}))

	got, err = s.LoadOrder("/repo")
	require.NoError(t, err)
	assert.Equal(t, order, got)

	// saving replaces, it does not merge
	require.NoError(t, s.SaveOrder("/repo", domain.OrderOverride{"lib": 0}))
	got, err = s.LoadOrder("/repo")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderOverride{"lib": 0}, got)

	roots, err := s.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"/other", "/repo"}, roots)
}

func TestStoreTxRollback(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.SaveOrder("/repo", domain.OrderOverride{"a.go": 0}))

	tx, err := s.BeginTx()
	require.NoError(t, err)
	require.NoError(t, tx.ClearOrder("/repo"))
	require.NoError(t, tx.SetRank("/repo", "b.go", 0))
	require.NoError(t, tx.Rollback())

	got, err := s.LoadOrder("/repo")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderOverride{"a.go": 0}, got)

	tx, err = s.BeginTx()
	require.NoError(t, err)
	require.NoError(t, tx.ClearOrder("/repo"))
	require.NoError(t, tx.Commit())

	got, err = s.LoadOrder("/repo")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreStackRoundTrip(t *testing.T) {
	s := openStore(t)

	missing, err := s.LoadStack("/repo")
	require.NoError(t, err)
	assert.Nil(t, missing)

	snap := domain.StackSnapshot{
		Active: 1,
		Levels: []domain.LevelSnapshot{
			{
				Query:         domain.QueryParams{Pattern: "foo", IsRegex: true, Include: []string{"**/*.go"}},
				Stats:         &domain.Stats{NumMatches: 4, NumFilesWithMatches: 2},
				ExpandedFiles: []string{"/repo/a.go"},
				ViewMode:      "tree",
			},
			{
				Query:    domain.QueryParams{Pattern: "bar", Scope: []string{"/repo/a.go", "/repo/b.go"}},
				ViewMode: "flat",
				Scope:    []string{"/repo/a.go", "/repo/b.go"},
			},
		},
	}
	require.NoError(t, s.SaveStack("/repo", snap))

	got, err := s.LoadStack("/repo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap, *got)
}

func TestStoreCorruptStack(t *testing.T) {
	s := openStore(t)
	_, err := s.db.Exec(`INSERT INTO stacks (root, payload, updated) VALUES ('/repo', '{not json', 0)`)
	require.NoError(t, err)

	_, err = s.LoadStack("/repo")

	assert.ErrorContains(t, err, "decode stack of /repo")
}

func TestStorePragmasOnEveryConnection(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	// Hold two connections at once so the pool cannot hand back the same one
	for i := 0; i < 2; i++ {
		conn, err := s.db.Conn(ctx)
		require.NoError(t, err)
		defer conn.Close()

		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode, "connection %d", i)

		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout, "connection %d", i)
	}
}

func TestDatabasePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	assert.Equal(t, "/data/resultlens/state.db", DatabasePath())
}

func TestOpenDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	s := NewStore()
	require.NoError(t, s.Open(""))
	defer s.Close()

	assert.Equal(t, filepath.Join(dir, "resultlens", "state.db"), s.Path())
}
