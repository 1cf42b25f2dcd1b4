package ports

import "resultlens/internal/domain"

// StateStore persists the custom file order and the refinement stack per
// search root
type StateStore interface {
	// Lifecycle
	Open(dbPath string) error
	Close() error

	// Custom order
	LoadOrder(root string) (domain.OrderOverride, error)
	SaveOrder(root string, order domain.OrderOverride) error

	// Refinement stack
	LoadStack(root string) (*domain.StackSnapshot, error)
	SaveStack(root string, snap domain.StackSnapshot) error

	// Batch updates
	BeginTx() (StoreTx, error)
}

// StoreTx groups order updates into one atomic write
type StoreTx interface {
	SetRank(root, path string, rank int) error
	ClearOrder(root string) error

	// Transaction control
	Commit() error
	Rollback() error
}
