package testkit

import (
	"context"
	"testing"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/run"
	"gosim/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLedgerRoundTrip(t *testing.T) {
	ledger := NewTestKit(1).LedgerAdapter()
	ctx := context.Background()

	rec := run.NewRecord(run.KindBootstrapInterval, 1, 100, 1, map[string]interface{}{"column": "x"})
	rec.WithInterval(1, 2, 95)
	require.NoError(t, ledger.SaveRun(ctx, rec))

	got, err := ledger.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Fingerprint.Fingerprint, got.Fingerprint.Fingerprint)
	assert.Equal(t, 95.0, *got.Level)

	_, err = ledger.GetRun(ctx, core.NewRunID())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInMemoryLedgerListFilters(t *testing.T) {
	kit := NewTestKit(1)
	ctx := context.Background()

	var ids []core.RunID
	for i, kind := range []run.Kind{run.KindModelTest, run.KindPermutationTest, run.KindModelTest, run.KindModelTest} {
		rec := run.NewRecord(kind, int64(i), 10, 1, nil)
		ids = append(ids, rec.ID)
		require.NoError(t, kit.LedgerAdapter().SaveRun(ctx, rec))
	}
	assert.Equal(t, 4, kit.Ledger().Len())

	all, err := kit.LedgerAdapter().ListRuns(ctx, ports.RunFilters{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].ID, "newest first")

	kind := run.KindModelTest
	models, err := kit.LedgerAdapter().ListRuns(ctx, ports.RunFilters{Kind: &kind, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, ids[2], models[0].ID)
}

func TestSourceIsReproducible(t *testing.T) {
	kit := NewTestKit(99)
	assert.Equal(t, kit.Source().Perm(20), kit.Source().Perm(20))
}

func TestPopulations(t *testing.T) {
	ints := Integers(1, 10)
	assert.Equal(t, 10, ints.Len())

	salaries := Salaries(DefaultSalaryConfig())
	assert.Equal(t, 5000, salaries.Len())
	values, err := dataset.Float64s(salaries, "salary")
	require.NoError(t, err)
	for _, v := range values {
		require.Greater(t, v, 0.0)
	}

	fish := Fish(DefaultFishConfig())
	assert.Equal(t, []string{"species", "weight"}, fish.ColumnNames())

	a, b := TwoGroups(3, 30, 40, 0)
	assert.Equal(t, 30, a.Len())
	assert.Equal(t, 40, b.Len())
}
