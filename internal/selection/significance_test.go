package selection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sweep-lab/internal/domain"
)

func row(k, t float64, defined bool) domain.SummaryRow {
	return domain.SummaryRow{
		Params:       domain.ParameterSet{K: k, HTh: 20, HSz: 10},
		NSeeds:       50,
		TStat:        t,
		TStatDefined: defined,
	}
}

func TestSignificant(t *testing.T) {
	table := &domain.ResultTable{Rows: []domain.SummaryRow{
		row(0.5, 2.5, true),
		row(1.0, 1.9, true),
		row(1.5, -3.0, true),
		row(2.0, 2.0, true),
		row(2.5, math.NaN(), false),
	}}

	got, err := Significant(table, 2.0)
	require.NoError(t, err)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, 0.5, got.Rows[0].Params.K)
	assert.Equal(t, 1.5, got.Rows[1].Params.K, "negative t passes on magnitude")
	assert.Equal(t, 2.0, got.Rows[2].Params.K, "boundary is inclusive")
}

func TestSignificant_UndefinedNeverPasses(t *testing.T) {
	table := &domain.ResultTable{Rows: []domain.SummaryRow{
		row(1, math.NaN(), false),
		row(2, 100, false),
	}}
	got, err := Significant(table, 0.001)
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
}

func TestSignificant_InvalidThreshold(t *testing.T) {
	table := &domain.ResultTable{Rows: []domain.SummaryRow{row(1, 5, true)}}
	for _, th := range []float64{0, -1, math.NaN()} {
		_, err := Significant(table, th)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", th)
	}
}

func TestSignificant_SubsetAndIdempotent(t *testing.T) {
	table := &domain.ResultTable{Rows: []domain.SummaryRow{
		row(1, 3, true), row(2, 0.5, true), row(3, -2.1, true), row(4, 1.99, true),
	}}

	once, err := Significant(table, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, once.Len(), table.Len())

	twice, err := Significant(once, 2)
	require.NoError(t, err)
	assert.Equal(t, once.Rows, twice.Rows)
}

func TestSignificant_KeepsFailuresAndHandlesNil(t *testing.T) {
	failures := []domain.TrialFailure{{Params: domain.ParameterSet{K: 9}, Seed: 3, Reason: "diverged"}}
	got, err := Significant(&domain.ResultTable{Failures: failures}, 2)
	require.NoError(t, err)
	assert.Equal(t, failures, got.Failures)

	got, err = Significant(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestParams(t *testing.T) {
	table := &domain.ResultTable{Rows: []domain.SummaryRow{row(1, 3, true), row(2, 3, true)}}
	grid := Params(table)
	require.Len(t, grid, 2)
	assert.Equal(t, 1.0, grid[0].K)
	assert.Equal(t, 2.0, grid[1].K)
}
