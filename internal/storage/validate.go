package storage

import "inventory-sweep-lab/internal/domain"

// ValidRowsKey reports whether (runID, phase) can key a batch of summary rows.
func ValidRowsKey(runID string, phase domain.Phase) bool {
	if runID == "" {
		return false
	}
	return phase == domain.PhaseInSample || phase == domain.PhaseOutOfSample
}

// ValidRun reports whether r carries the fields every store requires.
func ValidRun(r *domain.SweepRun) bool {
	return r != nil && r.RunID != "" && r.Status != ""
}
