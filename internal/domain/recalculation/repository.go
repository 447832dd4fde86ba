package recalculation

import "context"

// ProgressStore persists run checkpoints.
type ProgressStore interface {
	// Load returns ErrProgressNotFound when processID has no checkpoint
	Load(ctx context.Context, processID string) (*Progress, error)

	// Latest returns the most recently updated checkpoint, or ErrProgressNotFound
	Latest(ctx context.Context) (*Progress, error)

	// Save inserts or replaces the checkpoint keyed by its process id
	Save(ctx context.Context, progress *Progress) error
}

// Transactor runs fn in one unit of work. Repositories called with the
// context fn receives join that unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
