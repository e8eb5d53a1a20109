package clickhouse

import (
	"context"
	"fmt"
	"math"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/idhash"
	"inventory-sweep-lab/internal/storage"
)

// SummaryRowStore implements storage.SummaryRowStore using ClickHouse.
// The table is a ReplacingMergeTree, so append-only semantics are enforced
// with an existence check before each batch.
type SummaryRowStore struct {
	conn *Conn
}

// NewSummaryRowStore creates a new SummaryRowStore.
func NewSummaryRowStore(conn *Conn) *SummaryRowStore {
	return &SummaryRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SummaryRowStore = (*SummaryRowStore)(nil)

// InsertBulk adds the rows of one phase of a run in one batch.
func (s *SummaryRowStore) InsertBulk(ctx context.Context, runID string, phase domain.Phase, rows []domain.SummaryRow) error {
	if !storage.ValidRowsKey(runID, phase) {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	exists, err := s.exists(ctx, runID, phase)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO summary_rows (
			run_id, phase, row_index, params_key,
			k, alpha, hth, hsz,
			mean_inv_vol, mean_controlled_pnl, std_controlled_pnl,
			n_seeds, t_stat
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, r := range rows {
		var tstat *float64
		if r.TStatDefined && !math.IsNaN(r.TStat) {
			v := r.TStat
			tstat = &v
		}
		err = batch.Append(
			runID, string(phase), uint32(i), idhash.ComputeParamsKey(r.Params),
			r.Params.K, r.Params.Alpha, r.Params.HTh, r.Params.HSz,
			r.MeanInvVol, r.MeanControlledPnL, r.StdControlledPnL,
			uint32(r.NSeeds), tstat,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
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
		FROM summary_rows FINAL
		WHERE run_id = ? AND phase = ?
		ORDER BY row_index ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, string(phase))
	if err != nil {
		return nil, fmt.Errorf("query summary rows: %w", err)
	}
	defer rows.Close()

	result := []domain.SummaryRow{}
	for rows.Next() {
		var (
			r      domain.SummaryRow
			nSeeds uint32
			tstat  *float64
		)
		if err := rows.Scan(
			&r.Params.K, &r.Params.Alpha, &r.Params.HTh, &r.Params.HSz,
			&r.MeanInvVol, &r.MeanControlledPnL, &r.StdControlledPnL,
			&nSeeds, &tstat,
		); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		r.NSeeds = int(nSeeds)
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

func (s *SummaryRowStore) exists(ctx context.Context, runID string, phase domain.Phase) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM summary_rows WHERE run_id = ? AND phase = ?`,
		runID, string(phase),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
