package storage

import (
	"context"

	"inventory-sweep-lab/internal/domain"
)

// SummaryRowStore provides access to summary_rows storage.
// Rows are keyed by (run_id, phase, row_index); row_index preserves grid order.
type SummaryRowStore interface {
	// InsertBulk adds the rows of one phase of a run atomically.
	// Returns ErrDuplicateKey if rows for (runID, phase) already exist.
	InsertBulk(ctx context.Context, runID string, phase domain.Phase, rows []domain.SummaryRow) error

	// GetByRun retrieves the rows of (runID, phase), ordered by row_index ASC.
	// Returns an empty slice when nothing was stored.
	GetByRun(ctx context.Context, runID string, phase domain.Phase) ([]domain.SummaryRow, error)
}

// RunStore provides access to the sweep_runs registry.
type RunStore interface {
	// Insert registers a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.SweepRun) error

	// Finish records the final counters and status of a run.
	// Returns ErrNotFound if run_id does not exist.
	Finish(ctx context.Context, r *domain.SweepRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SweepRun, error)

	// List retrieves up to limit runs, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*domain.SweepRun, error)
}
