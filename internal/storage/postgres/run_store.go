package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, started_at, finished_at, grid_size,
	in_sample_seeds, out_sample_seeds, threshold, metric,
	survivors, front_size, failures, status
`

// Insert registers a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.SweepRun) error {
	if !storage.ValidRun(r) {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO sweep_runs (` + runColumns + `) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8,
		$9, $10, $11, $12
	)`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.StartedAt, r.FinishedAt, r.GridSize,
		r.InSampleSeeds, r.OutSampleSeeds, r.Threshold, r.Metric,
		r.Survivors, r.FrontSize, r.Failures, r.Status,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert sweep run: %w", err)
	}
	return nil
}

// Finish records the final counters and status of a run.
func (s *RunStore) Finish(ctx context.Context, r *domain.SweepRun) error {
	if !storage.ValidRun(r) {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE sweep_runs
		SET finished_at = $2, survivors = $3, front_size = $4, failures = $5, status = $6
		WHERE run_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		r.RunID, r.FinishedAt, r.Survivors, r.FrontSize, r.Failures, r.Status,
	)
	if err != nil {
		return fmt.Errorf("finish sweep run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.SweepRun, error) {
	query := `SELECT ` + runColumns + ` FROM sweep_runs WHERE run_id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get sweep run by id: %w", err)
	}
	return r, nil
}

// List retrieves up to limit runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*domain.SweepRun, error) {
	query := `SELECT ` + runColumns + ` FROM sweep_runs ORDER BY started_at DESC, run_id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sweep runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.SweepRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sweep run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep runs: %w", err)
	}
	return result, nil
}

func scanRun(row pgx.Row) (*domain.SweepRun, error) {
	var r domain.SweepRun
	err := row.Scan(
		&r.RunID, &r.StartedAt, &r.FinishedAt, &r.GridSize,
		&r.InSampleSeeds, &r.OutSampleSeeds, &r.Threshold, &r.Metric,
		&r.Survivors, &r.FrontSize, &r.Failures, &r.Status,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
