package memory

import (
	"context"
	"sync"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/storage"
)

// SummaryRowStore is an in-memory implementation of storage.SummaryRowStore.
type SummaryRowStore struct {
	mu   sync.RWMutex
	data map[string][]domain.SummaryRow // keyed by run_id|phase
}

// NewSummaryRowStore creates a new in-memory summary row store.
func NewSummaryRowStore() *SummaryRowStore {
	return &SummaryRowStore{
		data: make(map[string][]domain.SummaryRow),
	}
}

func rowsKey(runID string, phase domain.Phase) string {
	return runID + "|" + string(phase)
}

// InsertBulk adds the rows of one phase of a run atomically.
// An empty batch still claims the (runID, phase) key.
func (s *SummaryRowStore) InsertBulk(_ context.Context, runID string, phase domain.Phase, rows []domain.SummaryRow) error {
	if !storage.ValidRowsKey(runID, phase) {
		return storage.ErrInvalidInput
	}

	key := rowsKey(runID, phase)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	rowsCopy := make([]domain.SummaryRow, len(rows))
	copy(rowsCopy, rows)
	s.data[key] = rowsCopy
	return nil
}

// GetByRun retrieves the rows of (runID, phase) in insertion order.
func (s *SummaryRowStore) GetByRun(_ context.Context, runID string, phase domain.Phase) ([]domain.SummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[rowsKey(runID, phase)]
	result := make([]domain.SummaryRow, len(rows))
	copy(result, rows)
	return result, nil
}

var _ storage.SummaryRowStore = (*SummaryRowStore)(nil)
