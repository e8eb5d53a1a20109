package storage

import (
	"context"
	"errors"
	"time"

	"inventory-sweep-lab/internal/domain"
)

// QueryRecorder receives the latency and outcome of every store call.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, d time.Duration, err error)
}

// InstrumentedSummaryRowStore decorates a SummaryRowStore with query metrics.
type InstrumentedSummaryRowStore struct {
	next     SummaryRowStore
	database string
	rec      QueryRecorder
}

// NewInstrumentedSummaryRowStore wraps next; database labels the metrics.
func NewInstrumentedSummaryRowStore(next SummaryRowStore, database string, rec QueryRecorder) *InstrumentedSummaryRowStore {
	return &InstrumentedSummaryRowStore{next: next, database: database, rec: rec}
}

// InsertBulk forwards to the wrapped store.
func (s *InstrumentedSummaryRowStore) InsertBulk(ctx context.Context, runID string, phase domain.Phase, rows []domain.SummaryRow) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, runID, phase, rows)
	s.rec.RecordDBQuery(s.database, "summary_rows.insert_bulk", time.Since(start), queryError(err))
	return err
}

// GetByRun forwards to the wrapped store.
func (s *InstrumentedSummaryRowStore) GetByRun(ctx context.Context, runID string, phase domain.Phase) ([]domain.SummaryRow, error) {
	start := time.Now()
	rows, err := s.next.GetByRun(ctx, runID, phase)
	s.rec.RecordDBQuery(s.database, "summary_rows.get_by_run", time.Since(start), queryError(err))
	return rows, err
}

// InstrumentedRunStore decorates a RunStore with query metrics.
type InstrumentedRunStore struct {
	next     RunStore
	database string
	rec      QueryRecorder
}

// NewInstrumentedRunStore wraps next; database labels the metrics.
func NewInstrumentedRunStore(next RunStore, database string, rec QueryRecorder) *InstrumentedRunStore {
	return &InstrumentedRunStore{next: next, database: database, rec: rec}
}

// Insert forwards to the wrapped store.
func (s *InstrumentedRunStore) Insert(ctx context.Context, r *domain.SweepRun) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.rec.RecordDBQuery(s.database, "sweep_runs.insert", time.Since(start), queryError(err))
	return err
}

// Finish forwards to the wrapped store.
func (s *InstrumentedRunStore) Finish(ctx context.Context, r *domain.SweepRun) error {
	start := time.Now()
	err := s.next.Finish(ctx, r)
	s.rec.RecordDBQuery(s.database, "sweep_runs.finish", time.Since(start), queryError(err))
	return err
}

// GetByID forwards to the wrapped store.
func (s *InstrumentedRunStore) GetByID(ctx context.Context, runID string) (*domain.SweepRun, error) {
	start := time.Now()
	r, err := s.next.GetByID(ctx, runID)
	s.rec.RecordDBQuery(s.database, "sweep_runs.get_by_id", time.Since(start), queryError(err))
	return r, err
}

// List forwards to the wrapped store.
func (s *InstrumentedRunStore) List(ctx context.Context, limit int) ([]*domain.SweepRun, error) {
	start := time.Now()
	runs, err := s.next.List(ctx, limit)
	s.rec.RecordDBQuery(s.database, "sweep_runs.list", time.Since(start), queryError(err))
	return runs, err
}

// queryError drops the sentinel outcomes that are answers, not failures.
func queryError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

var (
	_ SummaryRowStore = (*InstrumentedSummaryRowStore)(nil)
	_ RunStore        = (*InstrumentedRunStore)(nil)
)
