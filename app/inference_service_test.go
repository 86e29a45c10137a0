package app

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/run"
	"gosim/domain/verdict"
	"gosim/internal/config"
	"gosim/internal/errors"
	"gosim/internal/model"
	"gosim/internal/random"
	"gosim/internal/simulation"
	"gosim/internal/statistic"
	"gosim/internal/testkit"
	"gosim/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) SaveRun(ctx context.Context, record *run.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLedger) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*run.Record)
	return rec, args.Error(1)
}

func (m *MockLedger) ListRuns(ctx context.Context, filters ports.RunFilters) ([]*run.Record, error) {
	args := m.Called(ctx, filters)
	recs, _ := args.Get(0).([]*run.Record)
	return recs, args.Error(1)
}

func seed(v int64) *int64 { return &v }

func newService(t *testing.T, workers int) (*InferenceService, *testkit.TestKit) {
	t.Helper()
	kit := testkit.NewTestKit(1)
	cfg := config.Default().Simulation
	cfg.Trials = 2000
	runner := simulation.NewRunner(simulation.WithWorkers(workers), simulation.WithLogger(kit.Logger()))
	return NewInferenceService(cfg, runner, kit.LedgerAdapter(), kit.Logger()), kit
}

func salarySample(t *testing.T) dataset.Dataset {
	t.Helper()
	sample, err := resampleOnce(testkit.Salaries(testkit.DefaultSalaryConfig()), 200)
	require.NoError(t, err)
	return sample
}

func resampleOnce(pop dataset.Dataset, n int) (dataset.Dataset, error) {
	return random.New(11).Draw(pop, n, false, nil)
}

func TestBootstrapIntervalRecordsRun(t *testing.T) {
	svc, kit := newService(t, 4)
	sample := salarySample(t)

	res, err := svc.BootstrapInterval(context.Background(), BootstrapRequest{
		Simulation: Simulation{Seed: seed(7)},
		Sample:     sample,
		Column:     "salary",
		Statistic:  statistic.Median,
	})
	require.NoError(t, err)
	assert.Equal(t, 95.0, res.Interval.Level)
	assert.LessOrEqual(t, res.Interval.Lower, res.Estimate)
	assert.GreaterOrEqual(t, res.Interval.Upper, res.Estimate)
	assert.Equal(t, 2000, res.Summary.N)
	assert.Equal(t, int64(7), res.Seed)

	rec, err := kit.LedgerAdapter().GetRun(context.Background(), core.RunID(res.RunID))
	require.NoError(t, err)
	assert.Equal(t, run.KindBootstrapInterval, rec.Kind)
	assert.Equal(t, res.Interval.Lower, *rec.Lower)
	assert.Equal(t, 4, rec.Workers)
}

func TestBootstrapIntervalReproducibleAcrossWorkers(t *testing.T) {
	sample := salarySample(t)
	req := BootstrapRequest{Simulation: Simulation{Seed: seed(99), Trials: 500}, Sample: sample, Column: "salary", Statistic: statistic.Mean, Level: 90}

	one, _ := newService(t, 1)
	many, _ := newService(t, 8)
	a, err := one.BootstrapInterval(context.Background(), req)
	require.NoError(t, err)
	b, err := many.BootstrapInterval(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Interval, b.Interval)
}

func TestFingerprintDependsOnSampleContents(t *testing.T) {
	svc, kit := newService(t, 2)
	ctx := context.Background()
	fingerprint := func(sample dataset.Dataset) core.Hash {
		res, err := svc.BootstrapInterval(ctx, BootstrapRequest{
			Simulation: Simulation{Seed: seed(7), Trials: 500},
			Sample:     sample,
			Column:     "x",
			Statistic:  statistic.Mean,
		})
		require.NoError(t, err)
		rec, err := kit.LedgerAdapter().GetRun(ctx, core.RunID(res.RunID))
		require.NoError(t, err)
		return rec.Fingerprint.Fingerprint
	}

	small := fingerprint(dataset.FromFloat64s("x", []float64{1, 2, 3, 4, 5}))
	large := fingerprint(dataset.FromFloat64s("x", []float64{100, 200, 300, 400, 500}))
	again := fingerprint(dataset.FromFloat64s("x", []float64{1, 2, 3, 4, 5}))

	assert.NotEqual(t, small, large)
	assert.Equal(t, small, again)

	runs, err := kit.LedgerAdapter().ListRuns(ctx, ports.RunFilters{Fingerprint: &small})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPermutationTest(t *testing.T) {
	svc, kit := newService(t, 2)
	a, _ := testkit.TwoGroups(5, 30, 40, 0)

	same, err := svc.PermutationTest(context.Background(), PermutationRequest{
		Simulation: Simulation{Seed: seed(1)},
		GroupA:     a,
		GroupB:     a,
		Column:     "value",
		Statistic:  statistic.Mean,
	})
	require.NoError(t, err)
	assert.Equal(t, verdict.FailToReject, same.Verdict.Decision)
	assert.InDelta(t, 1.0, *same.Verdict.PValue, 1e-12)

	_, shifted := testkit.TwoGroups(5, 30, 40, 30)
	diff, err := svc.PermutationTest(context.Background(), PermutationRequest{
		Simulation:  Simulation{Seed: seed(1)},
		GroupA:      shifted,
		GroupB:      a,
		Column:      "value",
		Statistic:   statistic.Mean,
		Orientation: verdict.Greater,
	})
	require.NoError(t, err)
	assert.True(t, diff.Verdict.Rejected())
	assert.Greater(t, *diff.Observed, 0.0)

	kind := run.KindPermutationTest
	recs, err := kit.LedgerAdapter().ListRuns(context.Background(), ports.RunFilters{Kind: &kind})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestModelTestSwain(t *testing.T) {
	svc, _ := newService(t, 4)
	m := model.Proportion{P: 0.26, N: 100}
	nullValue := 0.26

	res, err := svc.ModelTest(context.Background(), ModelTestRequest{
		Simulation: Simulation{Seed: seed(1965), Trials: 10000},
		Null:       "panel drawn at random from a 26% eligible population",
		Model:      "proportion(p=0.26,n=100)",
		Simulate:   m.Simulate,
		Observed:   0.08,
		NullValue:  &nullValue,
	})
	require.NoError(t, err)
	assert.True(t, res.Verdict.Rejected())
	assert.Less(t, *res.Verdict.PValue, 0.001)
	assert.InDelta(t, 0.26, res.Summary.Mean, 0.01)
}

func TestModelTestTwoSidedWithoutNullValue(t *testing.T) {
	svc, _ := newService(t, 1)
	_, err := svc.ModelTest(context.Background(), ModelTestRequest{
		Simulation: Simulation{Seed: seed(1), Trials: 10},
		Simulate:   model.Proportion{P: 0.5, N: 10}.Simulate,
		Observed:   0.1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMissingCenter)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestIntervalTest(t *testing.T) {
	svc, _ := newService(t, 2)
	sample := testkit.Integers(1, 100)

	inside, err := svc.IntervalTest(context.Background(), IntervalTestRequest{
		Simulation: Simulation{Seed: seed(3)},
		Sample:     sample,
		Column:     "x",
		Statistic:  statistic.Mean,
		NullValue:  50.5,
	})
	require.NoError(t, err)
	assert.Equal(t, verdict.FailToReject, inside.Verdict.Decision)
	assert.Equal(t, verdict.MethodConfidenceInterval, inside.Verdict.Method)
	require.NotNil(t, inside.Interval)

	outside, err := svc.IntervalTest(context.Background(), IntervalTestRequest{
		Simulation: Simulation{Seed: seed(3)},
		Sample:     sample,
		Column:     "x",
		Statistic:  statistic.Mean,
		NullValue:  10,
		Alpha:      0.01,
	})
	require.NoError(t, err)
	assert.True(t, outside.Verdict.Rejected())
	assert.InDelta(t, 99, outside.Interval.Level, 1e-9)
}

func TestCoverageStudy(t *testing.T) {
	svc, kit := newService(t, 4)
	res, err := svc.CoverageStudy(context.Background(), CoverageRequest{
		Simulation:      Simulation{Seed: seed(2015), Trials: 100},
		Population:      testkit.Salaries(testkit.DefaultSalaryConfig()),
		Column:          "salary",
		Statistic:       statistic.Median,
		SampleSize:      100,
		BootstrapTrials: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Intervals)
	assert.GreaterOrEqual(t, res.Coverage, 0.8)
	assert.LessOrEqual(t, res.Coverage, 1.0)

	rec, err := kit.LedgerAdapter().GetRun(context.Background(), core.RunID(res.RunID))
	require.NoError(t, err)
	assert.Equal(t, res.Coverage, *rec.Coverage)
}

func TestCoverageStudyStopsSiblingIntervalsOnFailure(t *testing.T) {
	svc, _ := newService(t, 4)
	boom := stderrors.New("boom")
	var calls atomic.Int64
	failing := statistic.Func("flaky_mean", func(ds dataset.Dataset, column string) (float64, error) {
		// Call 1 computes the population parameter.
		if calls.Add(1) == 2 {
			return 0, boom
		}
		return statistic.Mean.Reduce(ds, column)
	})

	_, err := svc.CoverageStudy(context.Background(), CoverageRequest{
		Simulation:      Simulation{Seed: seed(3), Trials: 8},
		Population:      testkit.Integers(1, 100),
		Column:          "x",
		Statistic:       failing,
		SampleSize:      10,
		BootstrapTrials: 100000,
	})
	require.ErrorIs(t, err, boom)
	assert.Less(t, calls.Load(), int64(10000))
}

func TestCoverageStudyRejectsOversizedSample(t *testing.T) {
	svc, _ := newService(t, 1)
	_, err := svc.CoverageStudy(context.Background(), CoverageRequest{
		Population: testkit.Integers(1, 5),
		Column:     "x",
		Statistic:  statistic.Mean,
		SampleSize: 10,
	})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestEventProbability(t *testing.T) {
	svc, _ := newService(t, 2)
	res, err := svc.EventProbability(context.Background(), EventRequest{
		Simulation: Simulation{Seed: seed(6), Trials: 6000},
		Name:       "die shows six",
		Event: func(src *random.Source) (bool, error) {
			return src.IntN(6) == 5, nil
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/6, res.Probability, 0.02)
}

func TestInvalidInputs(t *testing.T) {
	svc, _ := newService(t, 1)
	ctx := context.Background()

	_, err := svc.BootstrapInterval(ctx, BootstrapRequest{Sample: testkit.Integers(1, 3), Column: "x"})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = svc.BootstrapInterval(ctx, BootstrapRequest{Sample: testkit.Integers(1, 3), Column: "x", Statistic: statistic.Mean, Level: 100})
	assert.ErrorIs(t, err, core.ErrInvalidConfidenceLevel)

	_, err = svc.BootstrapInterval(ctx, BootstrapRequest{Sample: testkit.Integers(1, 3), Column: "missing", Statistic: statistic.Mean})
	assert.ErrorIs(t, err, core.ErrColumnNotFound)

	_, err = svc.EventProbability(ctx, EventRequest{})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestConfiguredSeedIsUsed(t *testing.T) {
	cfg := config.Default().Simulation
	cfg.Seed, cfg.HasSeed, cfg.Trials = 1234, true, 50
	svc := NewInferenceService(cfg, nil, nil, nil)

	res, err := svc.BootstrapInterval(context.Background(), BootstrapRequest{Sample: testkit.Integers(1, 10), Column: "x", Statistic: statistic.Mean})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), res.Seed)
}

func TestLedgerFailureSurfaces(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("SaveRun", mock.Anything, mock.AnythingOfType("*run.Record")).Return(errors.DatabaseError("insert failed", assert.AnError))

	cfg := config.Default().Simulation
	cfg.Trials = 20
	svc := NewInferenceService(cfg, nil, ledger, nil)

	_, err := svc.BootstrapInterval(context.Background(), BootstrapRequest{
		Simulation: Simulation{Seed: seed(1)},
		Sample:     testkit.Integers(1, 10),
		Column:     "x",
		Statistic:  statistic.Mean,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	ledger.AssertExpectations(t)
}
