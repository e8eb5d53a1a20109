// Package pipeline runs the two-phase in-sample / out-of-sample experiment.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/idhash"
	"inventory-sweep-lab/internal/metrics"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/progress"
	"inventory-sweep-lab/internal/reporting"
	"inventory-sweep-lab/internal/selection"
	"inventory-sweep-lab/internal/simulation"
	"inventory-sweep-lab/internal/storage"
	"inventory-sweep-lab/internal/storage/memory"
	"inventory-sweep-lab/internal/sweep"
)

// Experiment errors
var (
	ErrSeedLeak = errors.New("in-sample and out-of-sample seed ranges overlap")
	ErrNoGrid   = errors.New("experiment requires a non-empty grid")
)

// Output file names
const (
	ResultsFile      = "results.csv"
	OOSResultsFile   = "oos_result.csv"
	ParetoFile       = "pareto_oos.csv"
	ReportFile       = "REPORT.md"
	outputPermission = 0644
)

// Config describes one experiment.
type Config struct {
	Grid             domain.Grid
	InSampleSeeds    domain.SeedRange
	OutOfSampleSeeds domain.SeedRange
	Threshold        float64
	Metric           metrics.SignificanceMetric
	Parallelism      int
	FailurePolicy    sweep.FailurePolicy
	OutputDir        string // empty skips file output
}

// Result is the outcome of Experiment.Run.
type Result struct {
	RunID         string
	Status        string
	InSample      *domain.ResultTable
	Survivors     *domain.ResultTable
	OutOfSample   *domain.ResultTable
	Front         []domain.ParetoPoint
	Phase2Skipped bool
	Report        *reporting.Report
}

// Experiment wires the sweep engine, the significance filter and the Pareto
// extractor to storage, metrics and progress streaming.
type Experiment struct {
	cfg       Config
	oracle    simulation.Oracle
	runStore  storage.RunStore
	rowStore  storage.SummaryRowStore
	analytics storage.SummaryRowStore // optional mirror, e.g. ClickHouse
	metrics   *observability.Metrics
	publisher progress.Publisher
	logger    zerolog.Logger
	clock     func() time.Time
	newRunID  func() string
	replayCmd string
}

// NewExperiment creates an experiment backed by in-memory stores.
func NewExperiment(cfg Config, oracle simulation.Oracle) *Experiment {
	return &Experiment{
		cfg:      cfg,
		oracle:   oracle,
		runStore: memory.NewRunStore(),
		rowStore: memory.NewSummaryRowStore(),
		logger:   zerolog.Nop(),
		clock:    func() time.Time { return time.Now().UTC() },
		newRunID: idhash.NewRunID,
	}
}

// WithStores sets the run registry and the summary row store.
func (e *Experiment) WithStores(runs storage.RunStore, rows storage.SummaryRowStore) *Experiment {
	e.runStore = runs
	e.rowStore = rows
	return e
}

// WithAnalyticsStore mirrors every persisted table into rows. Mirror
// failures are logged and do not fail the run.
func (e *Experiment) WithAnalyticsStore(rows storage.SummaryRowStore) *Experiment {
	e.analytics = rows
	return e
}

// WithMetrics records Prometheus metrics on m.
func (e *Experiment) WithMetrics(m *observability.Metrics) *Experiment {
	e.metrics = m
	return e
}

// WithPublisher streams progress events to p.
func (e *Experiment) WithPublisher(p progress.Publisher) *Experiment {
	e.publisher = p
	return e
}

// WithLogger sets the logger.
func (e *Experiment) WithLogger(logger zerolog.Logger) *Experiment {
	e.logger = logger.With().Str("component", "experiment").Logger()
	return e
}

// WithClock sets a custom clock function for deterministic output.
func (e *Experiment) WithClock(clock func() time.Time) *Experiment {
	e.clock = clock
	return e
}

// WithRunID makes the next runs use the IDs returned by gen.
func (e *Experiment) WithRunID(gen func() string) *Experiment {
	e.newRunID = gen
	return e
}

// WithReplayCommand sets the command printed in the report to rebuild it.
func (e *Experiment) WithReplayCommand(cmd string) *Experiment {
	e.replayCmd = cmd
	return e
}

// Validate checks the configuration without running anything.
func (e *Experiment) Validate() error {
	if len(e.cfg.Grid) == 0 {
		return ErrNoGrid
	}
	if len(e.cfg.InSampleSeeds) == 0 || len(e.cfg.OutOfSampleSeeds) == 0 {
		return sweep.ErrNoSeeds
	}
	if overlap := domain.Overlap(e.cfg.InSampleSeeds, e.cfg.OutOfSampleSeeds); len(overlap) > 0 {
		return fmt.Errorf("%w: %d shared seeds, first %d", ErrSeedLeak, len(overlap), overlap[0])
	}
	if _, err := selection.Significant(nil, e.cfg.Threshold); err != nil {
		return err
	}
	if e.oracle == nil {
		return sweep.ErrNoOracle
	}
	return nil
}

// Run executes Phase 1 on the in-sample seeds, filters by significance, runs
// Phase 2 on the survivors with the out-of-sample seeds and extracts the
// Pareto front of the Phase 2 table.
//
// Failed parameter sets under SkipFailed mark the run PARTIAL and are listed
// in the result tables; Run still returns a nil error. Any other failure
// marks the run FAILED and is returned.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	started := e.clock()
	run := &domain.SweepRun{
		RunID:          e.newRunID(),
		StartedAt:      started.UnixMilli(),
		GridSize:       len(e.cfg.Grid),
		InSampleSeeds:  len(e.cfg.InSampleSeeds),
		OutSampleSeeds: len(e.cfg.OutOfSampleSeeds),
		Threshold:      e.cfg.Threshold,
		Metric:         string(e.metric()),
		Status:         domain.RunStatusRunning,
	}
	if err := e.runStore.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("register run: %w", err)
	}

	logger := e.logger.With().Str("run_id", run.RunID).Logger()
	logger.Info().
		Int("grid", run.GridSize).
		Int("in_sample_seeds", run.InSampleSeeds).
		Int("out_sample_seeds", run.OutSampleSeeds).
		Float64("threshold", run.Threshold).
		Str("metric", run.Metric).
		Msg("experiment started")
	e.publish(progress.Event{Type: progress.EventRunStarted, RunID: run.RunID, Total: run.GridSize})

	res, err := e.run(ctx, run, logger)

	run.FinishedAt = e.clock().UnixMilli()
	if err != nil {
		run.Status = domain.RunStatusFailed
	} else {
		run.Status = res.Status
	}
	// The registry update must land even when ctx was cancelled.
	if ferr := e.runStore.Finish(context.WithoutCancel(ctx), run); ferr != nil && err == nil {
		err = fmt.Errorf("finish run: %w", ferr)
		run.Status = domain.RunStatusFailed
	}

	elapsed := time.Duration(run.FinishedAt-run.StartedAt) * time.Millisecond
	if e.metrics != nil {
		e.metrics.RecordExperiment(run.Status, elapsed)
	}
	e.publish(progress.Event{
		Type:      progress.EventRunFinished,
		RunID:     run.RunID,
		Survivors: run.Survivors,
		FrontSize: run.FrontSize,
		Status:    run.Status,
	})

	if err != nil {
		logger.Error().Err(err).Msg("experiment failed")
		return nil, err
	}
	res.Report.Status = run.Status
	logger.Info().
		Str("status", run.Status).
		Int("survivors", run.Survivors).
		Int("front", run.FrontSize).
		Int("failures", run.Failures).
		Dur("elapsed", elapsed).
		Msg("experiment finished")
	return res, nil
}

func (e *Experiment) run(ctx context.Context, run *domain.SweepRun, logger zerolog.Logger) (*Result, error) {
	res := &Result{RunID: run.RunID, Status: domain.RunStatusCompleted}

	// Phase 1
	inSample, partial, err := e.sweepPhase(ctx, run.RunID, domain.PhaseInSample, e.cfg.Grid, e.cfg.InSampleSeeds, logger)
	if err != nil {
		return nil, err
	}
	res.InSample = inSample

	survivors, err := selection.Significant(inSample, e.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	res.Survivors = survivors
	run.Survivors = survivors.Len()
	logger.Info().Int("rows", inSample.Len()).Int("survivors", survivors.Len()).Msg("significance filter applied")

	// Phase 2
	if survivors.Len() == 0 {
		res.Phase2Skipped = true
		res.OutOfSample = &domain.ResultTable{}
		if err := e.persist(ctx, run.RunID, domain.PhaseOutOfSample, res.OutOfSample, logger); err != nil {
			return nil, err
		}
		logger.Warn().Msg("no significant parameter set, out-of-sample phase skipped")
	} else {
		outOfSample, partial2, err := e.sweepPhase(ctx, run.RunID, domain.PhaseOutOfSample, selection.Params(survivors), e.cfg.OutOfSampleSeeds, logger)
		if err != nil {
			return nil, err
		}
		res.OutOfSample = outOfSample
		partial = partial || partial2
	}

	res.Front = selection.ParetoFront(res.OutOfSample)
	run.FrontSize = len(res.Front)
	run.Failures = len(res.InSample.Failures) + len(res.OutOfSample.Failures)
	if partial {
		res.Status = domain.RunStatusPartial
	}
	if e.metrics != nil {
		e.metrics.RecordSelection(run.Survivors, run.FrontSize)
	}

	res.Report = e.buildReport(run, res)
	if e.cfg.OutputDir != "" {
		if err := e.writeOutputs(res); err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.RecordReport()
		}
	}
	return res, nil
}

// sweepPhase runs one sweep and persists its table. partial reports failed
// parameter sets under SkipFailed.
func (e *Experiment) sweepPhase(ctx context.Context, runID string, phase domain.Phase, grid domain.Grid, seeds domain.SeedRange, logger zerolog.Logger) (*domain.ResultTable, bool, error) {
	var observer sweep.Observer
	if e.metrics != nil {
		observer = e.metrics.SweepObserver(phase)
	}
	phaseLogger := logger.With().Str("phase", string(phase)).Logger()

	engine, err := sweep.New(sweep.Options{
		Oracle:        e.oracle,
		Metric:        e.metric(),
		Parallelism:   e.cfg.Parallelism,
		FailurePolicy: e.cfg.FailurePolicy,
		Observer:      sweep.Observers(observer, progress.RowObserver(e.publisher, runID, phase)),
		Logger:        &phaseLogger,
	})
	if err != nil {
		return nil, false, err
	}

	started := time.Now()
	table, err := engine.Sweep(ctx, grid, seeds)
	partial := errors.Is(err, sweep.ErrPartialFailure)
	if err != nil && !partial {
		return nil, false, fmt.Errorf("%s sweep: %w", phase, err)
	}
	if e.metrics != nil {
		e.metrics.RecordSweep(phase, time.Since(started))
	}

	if err := e.persist(ctx, runID, phase, table, logger); err != nil {
		return nil, false, err
	}
	e.publish(progress.Event{
		Type:  progress.EventPhaseFinished,
		RunID: runID,
		Phase: phase,
		Total: len(grid),
		Rows:  table.Len(),
	})
	return table, partial, nil
}

func (e *Experiment) persist(ctx context.Context, runID string, phase domain.Phase, table *domain.ResultTable, logger zerolog.Logger) error {
	if err := e.rowStore.InsertBulk(ctx, runID, phase, table.Rows); err != nil {
		return fmt.Errorf("persist %s rows: %w", phase, err)
	}
	if e.analytics != nil {
		if err := e.analytics.InsertBulk(ctx, runID, phase, table.Rows); err != nil {
			logger.Warn().Err(err).Str("phase", string(phase)).Msg("analytics mirror failed")
		}
	}
	return nil
}

func (e *Experiment) buildReport(run *domain.SweepRun, res *Result) *reporting.Report {
	return &reporting.Report{
		RunID:          run.RunID,
		GeneratedAt:    e.clock(),
		Status:         res.Status,
		Metric:         run.Metric,
		Threshold:      run.Threshold,
		GridSize:       run.GridSize,
		InSampleSeeds:  run.InSampleSeeds,
		OutSampleSeeds: run.OutSampleSeeds,
		InSample:       res.InSample,
		Survivors:      res.Survivors,
		OutOfSample:    res.OutOfSample,
		Front:          res.Front,
		Phase2Skipped:  res.Phase2Skipped,
		Reproducibility: reporting.ReproducibilityMetadata{
			GeneratorVersion: reporting.GeneratorVersion,
			DataVersion:      reporting.ComputeDataVersion(res.InSample, res.OutOfSample),
			CommitHash:       reporting.GitCommitHash(),
			ReplayCommand:    e.replayCmd,
		},
	}
}

// writeOutputs writes the result tables, the front and the report.
func (e *Experiment) writeOutputs(res *Result) error {
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return err
	}
	files := []struct {
		name    string
		content string
	}{
		{ResultsFile, reporting.RenderResultCSV(res.InSample)},
		{OOSResultsFile, reporting.RenderResultCSV(res.OutOfSample)},
		{ParetoFile, reporting.RenderParetoCSV(res.Front)},
		{ReportFile, reporting.RenderMarkdown(res.Report)},
	}
	for _, f := range files {
		path := filepath.Join(e.cfg.OutputDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), outputPermission); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func (e *Experiment) metric() metrics.SignificanceMetric {
	if e.cfg.Metric == "" {
		return metrics.MetricControlledPnL
	}
	return e.cfg.Metric
}

func (e *Experiment) publish(ev progress.Event) {
	if e.publisher == nil {
		return
	}
	if ev.TimeMs == 0 {
		ev.TimeMs = e.clock().UnixMilli()
	}
	e.publisher.Publish(ev)
}
