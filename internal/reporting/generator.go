package reporting

import (
	"context"
	"fmt"
	"time"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/selection"
	"inventory-sweep-lab/internal/storage"
)

// Generator rebuilds reports of past runs from stored data.
type Generator struct {
	runStore storage.RunStore
	rowStore storage.SummaryRowStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore, rowStore storage.SummaryRowStore) *Generator {
	return &Generator{
		runStore: runStore,
		rowStore: rowStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads run runID and both phase tables, then recomputes the
// survivors and the front with the run's recorded threshold. Failures are
// not persisted, so the rebuilt tables carry none. Phase 2 counts as skipped
// only for runs that finished; a failed or running run keeps its status.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	inRows, err := g.rowStore.GetByRun(ctx, runID, domain.PhaseInSample)
	if err != nil {
		return nil, fmt.Errorf("load in-sample rows: %w", err)
	}
	outRows, err := g.rowStore.GetByRun(ctx, runID, domain.PhaseOutOfSample)
	if err != nil {
		return nil, fmt.Errorf("load out-of-sample rows: %w", err)
	}

	inSample := &domain.ResultTable{Rows: inRows}
	survivors, err := selection.Significant(inSample, run.Threshold)
	if err != nil {
		return nil, err
	}
	outOfSample := &domain.ResultTable{Rows: outRows}

	return &Report{
		RunID:          run.RunID,
		GeneratedAt:    g.now(),
		Status:         run.Status,
		Metric:         run.Metric,
		Threshold:      run.Threshold,
		GridSize:       run.GridSize,
		InSampleSeeds:  run.InSampleSeeds,
		OutSampleSeeds: run.OutSampleSeeds,
		InSample:       inSample,
		Survivors:      survivors,
		OutOfSample:    outOfSample,
		Front:          selection.ParetoFront(outOfSample),
		Phase2Skipped:  finished(run.Status) && survivors.Len() == 0,
		Reproducibility: ReproducibilityMetadata{
			GeneratorVersion: GeneratorVersion,
			DataVersion:      ComputeDataVersion(inSample, outOfSample),
			CommitHash:       GitCommitHash(),
			ReplayCommand:    "sweep report " + run.RunID,
		},
	}, nil
}

// finished reports whether a run reached the end of both phases.
func finished(status string) bool {
	return status == domain.RunStatusCompleted || status == domain.RunStatusPartial
}
