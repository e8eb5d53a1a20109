package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/idhash"
	"inventory-sweep-lab/internal/storage"
)

// SummaryRowStore implements storage.SummaryRowStore using PostgreSQL.
type SummaryRowStore struct {
	pool *Pool
}

// NewSummaryRowStore creates a new SummaryRowStore.
func NewSummaryRowStore(pool *Pool) *SummaryRowStore {
	return &SummaryRowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryRowStore = (*SummaryRowStore)(nil)

// InsertBulk adds the rows of one phase of a run in a single transaction.
// Fails the entire batch if any (run_id, phase, row_index) exists.
func (s *SummaryRowStore) InsertBulk(ctx context.Context, runID string, phase domain.Phase, rows []domain.SummaryRow) error {
	if !storage.ValidRowsKey(runID, phase) {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO summary_rows (
			run_id, phase, row_index, params_key,
			k, alpha, hth, hsz,
			mean_inv_vol, mean_controlled_pnl, std_controlled_pnl,
			n_seeds, t_stat
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11,
			$12, $13
		)
	`

	batch := &pgx.Batch{}
	for i, r := range rows {
		batch.Queue(query,
			runID, string(phase), i, idhash.ComputeParamsKey(r.Params),
			r.Params.K, r.Params.Alpha, r.Params.HTh, r.Params.HSz,
			r.MeanInvVol, r.MeanControlledPnL, r.StdControlledPnL,
			r.NSeeds, nullableTStat(r.TStat, r.TStatDefined),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert summary row: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves the rows of (runID, phase), ordered by row_index ASC.
func (s *SummaryRowStore) GetByRun(ctx context.Context, runID string, phase domain.Phase) ([]domain.SummaryRow, error) {
	query := `
		SELECT
			k, alpha, hth, hsz,
			mean_inv_vol, mean_controlled_pnl, std_controlled_pnl,
			n_seeds, t_stat
		FROM summary_rows
		WHERE run_id = $1 AND phase = $2
		ORDER BY row_index ASC
	`

	rows, err := s.pool.Query(ctx, query, runID, string(phase))
	if err != nil {
		return nil, fmt.Errorf("query summary rows: %w", err)
	}
	defer rows.Close()

	result := []domain.SummaryRow{}
	for rows.Next() {
		var (
			r     domain.SummaryRow
			tstat *float64
		)
		if err := rows.Scan(
			&r.Params.K, &r.Params.Alpha, &r.Params.HTh, &r.Params.HSz,
			&r.MeanInvVol, &r.MeanControlledPnL, &r.StdControlledPnL,
			&r.NSeeds, &tstat,
		); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		if tstat != nil {
			r.TStat, r.TStatDefined = *tstat, true
		} else {
			r.TStat = math.NaN()
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return result, nil
}
