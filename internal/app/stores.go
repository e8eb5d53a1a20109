// Package app assembles stores and experiments from configuration for the
// command-line tools.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/storage"
	chstore "inventory-sweep-lab/internal/storage/clickhouse"
	"inventory-sweep-lab/internal/storage/memory"
	"inventory-sweep-lab/internal/storage/migrations"
	pgstore "inventory-sweep-lab/internal/storage/postgres"
)

// Stores holds the storage used by an experiment.
type Stores struct {
	Runs      storage.RunStore
	Rows      storage.SummaryRowStore
	Analytics storage.SummaryRowStore // nil without ClickHouse
	Backend   string

	closers []func()
}

// Close releases every connection.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores creates the stores selected by cfg. Postgres and ClickHouse
// schemas are migrated on open and their stores report query metrics to rec.
func OpenStores(ctx context.Context, cfg config.StorageConfig, rec storage.QueryRecorder, logger zerolog.Logger) (*Stores, error) {
	if cfg.Backend == "" || cfg.Backend == config.BackendMemory {
		logger.Info().Msg("using in-memory storage")
		return &Stores{
			Runs:    memory.NewRunStore(),
			Rows:    memory.NewSummaryRowStore(),
			Backend: config.BackendMemory,
		}, nil
	}
	if cfg.Backend != config.BackendPostgres {
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}

	stores := &Stores{Backend: config.BackendPostgres}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	stores.closers = append(stores.closers, pool.Close)

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Info().Strs("migrations", applied).Msg("postgres ready")

	stores.Runs = wrapRuns(pgstore.NewRunStore(pool), "postgres", rec)
	stores.Rows = wrapRows(pgstore.NewSummaryRowStore(pool), "postgres", rec)

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.closers = append(stores.closers, func() { conn.Close() })
		stores.Analytics = wrapRows(chstore.NewSummaryRowStore(conn), "clickhouse", rec)
		logger.Info().Msg("clickhouse analytics mirror ready")
	}

	return stores, nil
}

func wrapRuns(s storage.RunStore, database string, rec storage.QueryRecorder) storage.RunStore {
	if rec == nil {
		return s
	}
	return storage.NewInstrumentedRunStore(s, database, rec)
}

func wrapRows(s storage.SummaryRowStore, database string, rec storage.QueryRecorder) storage.SummaryRowStore {
	if rec == nil {
		return s
	}
	return storage.NewInstrumentedSummaryRowStore(s, database, rec)
}
