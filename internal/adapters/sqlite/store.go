package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"resultlens/internal/domain"
	"resultlens/internal/ports"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Store implements ports.StateStore using SQLite
type Store struct {
	db     *sql.DB
	dbPath string
}

// Ensure Store implements StateStore
var _ ports.StateStore = (*Store)(nil)

// NewStore creates a new SQLite state store
func NewStore() *Store {
	return &Store{}
}

const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
	"&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)"

// Open initializes the store at dbPath, or at the default location when
// dbPath is empty
func (s *Store) Open(dbPath string) error {
	if dbPath == "" {
		dbPath = DatabasePath()
	}
	// Expand ~ in path
	if len(dbPath) > 0 && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}
	s.dbPath = dbPath

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Connection pragmas go in the DSN so every pooled connection gets them
	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS file_order (
			root TEXT NOT NULL,
			path TEXT NOT NULL,
			rank INTEGER NOT NULL,
			PRIMARY KEY (root, path)
		);
		CREATE TABLE IF NOT EXISTS stacks (
			root TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to setup database: %w", err)
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		db.Close()
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file in use
func (s *Store) Path() string { return s.dbPath }

// DatabasePath returns the default location of the state database
func DatabasePath() string {
	// XDG data directory
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "resultlens", "state.db")
}

// LoadOrder returns the custom order of root. A root without one yields an
// empty override.
func (s *Store) LoadOrder(root string) (domain.OrderOverride, error) {
	rows, err := s.db.Query(`SELECT path, rank FROM file_order WHERE root = ?`, root)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order := domain.OrderOverride{}
	for rows.Next() {
		var (
			p    string
			rank int
		)
		if err := rows.Scan(&p, &rank); err != nil {
			return nil, err
		}
		order[p] = rank
	}
	return order, rows.Err()
}

// SaveOrder replaces the custom order of root
func (s *Store) SaveOrder(root string, order domain.OrderOverride) error {
	tx, err := s.BeginTx()
	if err != nil {
		return err
	}
	if err := tx.ClearOrder(root); err != nil {
		tx.Rollback()
		return err
	}
	for p, rank := range order {
		if err := tx.SetRank(root, p, rank); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadStack returns the saved refinement stack of root, or nil
func (s *Store) LoadStack(root string) (*domain.StackSnapshot, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM stacks WHERE root = ?`, root).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap domain.StackSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decode stack of %s: %w", root, err)
	}
	return &snap, nil
}

// SaveStack stores the refinement stack of root
func (s *Store) SaveStack(root string, snap domain.StackSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode stack of %s: %w", root, err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO stacks (root, payload, updated)
		VALUES (?, ?, ?)
	`, root, string(payload), time.Now().Unix())
	return err
}

// Roots lists every root with saved state
func (s *Store) Roots() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT root FROM stacks
		UNION
		SELECT root FROM file_order
		ORDER BY root
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roots = append(roots, r)
	}
	return roots, rows.Err()
}

// BeginTx starts a new transaction
func (s *Store) BeginTx() (ports.StoreTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &storeTx{tx: tx}, nil
}
