package clickhouse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/storage"
)

func TestSummaryRowStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryRowStore(conn)
	ctx := context.Background()

	rows := []domain.SummaryRow{
		{Params: domain.ParameterSet{K: 1, Alpha: 0.05, HTh: 50, HSz: 20}, MeanInvVol: 4, MeanControlledPnL: 3, StdControlledPnL: 1, NSeeds: 50, TStat: 21.2, TStatDefined: true},
		{Params: domain.ParameterSet{K: 0.5, HTh: 20, HSz: 10}, MeanInvVol: 2, MeanControlledPnL: 1, NSeeds: 1, TStat: math.NaN()},
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", domain.PhaseOutOfSample, rows))

	got, err := store.GetByRun(ctx, "run-1", domain.PhaseOutOfSample)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rows[0], got[0])
	assert.Equal(t, rows[1].Params, got[1].Params)
	assert.Equal(t, 1, got[1].NSeeds)
	assert.False(t, got[1].TStatDefined)

	err = store.InsertBulk(ctx, "run-1", domain.PhaseOutOfSample, rows)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	empty, err := store.GetByRun(ctx, "run-1", domain.PhaseInSample)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
