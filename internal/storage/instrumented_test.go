package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/storage"
	"inventory-sweep-lab/internal/storage/memory"
)

type call struct {
	database, operation string
	err                 error
}

type fakeRecorder struct {
	calls []call
}

func (f *fakeRecorder) RecordDBQuery(database, operation string, _ time.Duration, err error) {
	f.calls = append(f.calls, call{database, operation, err})
}

func TestInstrumentedSummaryRowStore(t *testing.T) {
	rec := &fakeRecorder{}
	store := storage.NewInstrumentedSummaryRowStore(memory.NewSummaryRowStore(), "memory", rec)
	ctx := context.Background()

	rows := []domain.SummaryRow{{Params: domain.ParameterSet{K: 1}, NSeeds: 3}}
	require.NoError(t, store.InsertBulk(ctx, "run-1", domain.PhaseInSample, rows))
	err := store.InsertBulk(ctx, "run-1", domain.PhaseInSample, rows)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRun(ctx, "run-1", domain.PhaseInSample)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.Len(t, rec.calls, 3)
	assert.Equal(t, "summary_rows.insert_bulk", rec.calls[0].operation)
	assert.NoError(t, rec.calls[0].err)
	assert.True(t, errors.Is(rec.calls[1].err, storage.ErrDuplicateKey))
	assert.Equal(t, "summary_rows.get_by_run", rec.calls[2].operation)
}

func TestInstrumentedRunStore_NotFoundIsNotAnError(t *testing.T) {
	rec := &fakeRecorder{}
	store := storage.NewInstrumentedRunStore(memory.NewRunStore(), "memory", rec)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "memory", rec.calls[0].database)
	assert.NoError(t, rec.calls[0].err)
}
