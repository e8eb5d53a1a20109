package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/metrics"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/pipeline"
	"inventory-sweep-lab/internal/progress"
	"inventory-sweep-lab/internal/simulation"
	"inventory-sweep-lab/internal/sweep"
)

// PipelineConfig converts a loaded configuration into an experiment config.
func PipelineConfig(cfg config.Config) (pipeline.Config, error) {
	metric, err := metrics.ParseSignificanceMetric(cfg.Metric)
	if err != nil {
		return pipeline.Config{}, err
	}
	policy, err := sweep.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return pipeline.Config{
		Grid:             cfg.Grid.Expand(),
		InSampleSeeds:    cfg.Seeds.InSample.Range(),
		OutOfSampleSeeds: cfg.Seeds.OutOfSample.Range(),
		Threshold:        cfg.Threshold,
		Metric:           metric,
		Parallelism:      cfg.Parallelism,
		FailurePolicy:    policy,
		OutputDir:        cfg.OutputDir,
	}, nil
}

// Deps are the collaborators shared by every experiment of a process.
type Deps struct {
	Stores    *Stores
	Metrics   *observability.Metrics
	Publisher progress.Publisher
	Logger    zerolog.Logger
}

// NewExperiment builds an experiment over the inventory simulator.
func NewExperiment(cfg config.Config, deps Deps) (*pipeline.Experiment, error) {
	pcfg, err := PipelineConfig(cfg)
	if err != nil {
		return nil, err
	}

	exp := pipeline.NewExperiment(pcfg, simulation.NewInventorySimulator(cfg.Market)).
		WithLogger(deps.Logger)
	if deps.Stores != nil {
		exp.WithStores(deps.Stores.Runs, deps.Stores.Rows)
		if deps.Stores.Analytics != nil {
			exp.WithAnalyticsStore(deps.Stores.Analytics)
		}
	}
	if deps.Metrics != nil {
		exp.WithMetrics(deps.Metrics)
	}
	if deps.Publisher != nil {
		exp.WithPublisher(deps.Publisher)
	}
	return exp, nil
}
