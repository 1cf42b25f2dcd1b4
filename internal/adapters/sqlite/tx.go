package sqlite

import (
	"database/sql"

	"resultlens/internal/ports"
)

// storeTx implements ports.StoreTx
type storeTx struct {
	tx *sql.Tx
}

// Ensure storeTx implements StoreTx
var _ ports.StoreTx = (*storeTx)(nil)

// SetRank inserts or updates the rank of one path
func (t *storeTx) SetRank(root, path string, rank int) error {
	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO file_order (root, path, rank)
		VALUES (?, ?, ?)
	`, root, path, rank)
	return err
}

// ClearOrder removes the custom order of root
func (t *storeTx) ClearOrder(root string) error {
	_, err := t.tx.Exec(`DELETE FROM file_order WHERE root = ?`, root)
	return err
}

// Commit commits the transaction
func (t *storeTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *storeTx) Rollback() error {
	return t.tx.Rollback()
}
