package simulation

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/internal/random"
	"gosim/internal/resample"
	"gosim/internal/statistic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meanOfBootstrap(sample dataset.Dataset) StreamTrialFunc {
	engine := statistic.NewEngine()
	return func(src *random.Source) (float64, error) {
		rs, err := resample.New(src).BootstrapResample(sample)
		if err != nil {
			return 0, err
		}
		return engine.Compute(rs, statistic.Mean, "x")
	}
}

func TestRunCollectsExactlyNTrials(t *testing.T) {
	calls := 0
	d, err := NewRunner().Run(context.Background(), func() (float64, error) {
		calls++
		return float64(calls), nil
	}, 250)
	require.NoError(t, err)
	assert.Equal(t, 250, calls)
	assert.Equal(t, 250, d.Len())
	assert.Equal(t, 1.0, d.Values()[0])
	assert.Equal(t, 250.0, d.Values()[249])
}

func TestRunRejectsNonPositiveTrialCount(t *testing.T) {
	trial := func() (float64, error) { return 0, nil }
	for _, n := range []int{0, -1} {
		_, err := NewRunner().Run(context.Background(), trial, n)
		assert.ErrorIs(t, err, core.ErrInvalidTrialCount)

		_, err = NewRunner().RunStreams(context.Background(), random.New(1), func(*random.Source) (float64, error) { return 0, nil }, n)
		assert.ErrorIs(t, err, core.ErrInvalidTrialCount)
	}
}

func TestBootstrapOfConstantSampleIsDegenerate(t *testing.T) {
	sample := dataset.FromFloat64s("x", []float64{10, 10, 10})
	rs := resample.New(random.New(42))
	engine := statistic.NewEngine()

	d, err := NewRunner().Run(context.Background(), func() (float64, error) {
		boot, err := rs.BootstrapResample(sample)
		if err != nil {
			return 0, err
		}
		return engine.Compute(boot, statistic.Mean, "x")
	}, 1000)
	require.NoError(t, err)
	for _, v := range d.Values() {
		require.Equal(t, 10.0, v)
	}
}

func TestRunAbortsOnTrialError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	counter := &Counter{}
	d, err := NewRunner(WithProgress(counter)).Run(context.Background(), func() (float64, error) {
		calls++
		if calls == 5 {
			return 0, boom
		}
		return 1, nil
	}, 100)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "trial 4")
	assert.Equal(t, 5, calls)
	assert.Equal(t, int64(4), counter.Trials())
	assert.Equal(t, int64(1), counter.Failed())
}

func TestNaNTrialResultFailsRun(t *testing.T) {
	calls := 0
	_, err := NewRunner().Run(context.Background(), func() (float64, error) {
		calls++
		if calls == 3 {
			return math.NaN(), nil
		}
		return 1, nil
	}, 10)
	assert.ErrorIs(t, err, core.ErrStatisticUndefined)
	assert.Contains(t, err.Error(), "trial 2")

	d, err := NewRunner(WithWorkers(4)).RunStreams(context.Background(), random.New(1), func(src *random.Source) (float64, error) {
		return math.NaN(), nil
	}, 20)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, core.ErrStatisticUndefined)
}

func TestRunStreamsContextCancelsSiblingTrials(t *testing.T) {
	boom := errors.New("boom")
	var started atomic.Int32
	begin := time.Now()

	_, err := NewRunner(WithWorkers(4)).RunStreamsContext(context.Background(), random.New(1), func(ctx context.Context, _ *random.Source) (float64, error) {
		if started.Add(1) == 1 {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(10 * time.Second):
			return 1, nil
		}
	}, 4)
	require.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(begin), 5*time.Second)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner().Run(ctx, func() (float64, error) { return 0, nil }, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunStreamsIsDeterministicAcrossWorkerCounts(t *testing.T) {
	sample := dataset.FromFloat64s("x", []float64{2, 7, 1, 8, 2, 8, 1, 8, 2, 8})
	trial := meanOfBootstrap(sample)

	base, err := NewRunner(WithWorkers(1)).RunStreams(context.Background(), random.New(2024), trial, 500)
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 16} {
		d, err := NewRunner(WithWorkers(workers)).RunStreams(context.Background(), random.New(2024), trial, 500)
		require.NoError(t, err)
		assert.Equal(t, base.Values(), d.Values(), "workers=%d", workers)
	}

	other, err := NewRunner(WithWorkers(4)).RunStreams(context.Background(), random.New(2025), trial, 500)
	require.NoError(t, err)
	assert.NotEqual(t, base.Values(), other.Values())
}

func TestRunStreamsFailureReturnsNoDistribution(t *testing.T) {
	boom := errors.New("boom")
	counter := &Counter{}
	d, err := NewRunner(WithWorkers(4), WithProgress(counter)).RunStreams(context.Background(), random.New(1),
		func(src *random.Source) (float64, error) {
			if src.IntN(10) == 0 {
				return 0, boom
			}
			return 1, nil
		}, 1000)
	assert.Nil(t, d)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), counter.Runs())
	assert.Equal(t, int64(1), counter.Failed())
}

func TestCounterTracksTrialsAndRuns(t *testing.T) {
	counter := &Counter{}
	r := NewRunner(WithWorkers(3), WithProgress(counter))
	_, err := r.RunStreams(context.Background(), random.New(5), func(*random.Source) (float64, error) { return 1, nil }, 120)
	require.NoError(t, err)
	_, err = r.Run(context.Background(), func() (float64, error) { return 1, nil }, 30)
	require.NoError(t, err)

	assert.Equal(t, int64(150), counter.Trials())
	assert.Equal(t, int64(2), counter.Runs())
	assert.Equal(t, int64(0), counter.Failed())
}

func TestWithProgressFansOut(t *testing.T) {
	a, b := &Counter{}, &Counter{}
	_, err := NewRunner(WithProgress(a), WithProgress(b)).Run(context.Background(), func() (float64, error) { return 0, nil }, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.Trials())
	assert.Equal(t, int64(7), b.Trials())
}

func TestWithWorkersDefaultsToCPUCount(t *testing.T) {
	assert.GreaterOrEqual(t, NewRunner(WithWorkers(0)).Workers(), 1)
	assert.Equal(t, 1, NewRunner().Workers())
}

func TestEstimateProbabilityBirthdayCollision(t *testing.T) {
	// Probability that at least two of 23 people share a birthday is about 0.507.
	event := func(src *random.Source) (bool, error) {
		days, err := src.DrawIndices(365, 23, true, nil)
		if err != nil {
			return false, err
		}
		seen := make(map[int]bool, len(days))
		for _, d := range days {
			if seen[d] {
				return true, nil
			}
			seen[d] = true
		}
		return false, nil
	}
	p, err := EstimateProbability(context.Background(), NewRunner(WithWorkers(4)), random.New(365), event, 20000)
	require.NoError(t, err)
	assert.InDelta(t, 0.507, p, 0.02)
}
