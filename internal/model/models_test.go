package model

import (
	"context"
	"testing"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/domain/verdict"
	"gosim/internal/distribution"
	"gosim/internal/random"
	"gosim/internal/simulation"
	"gosim/internal/statistic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jury = Categorical{Labels: []string{"Black", "Other"}, Probs: []float64{0.26, 0.74}}

func TestCategoricalSampleMatchesProbabilities(t *testing.T) {
	frame, err := jury.Sample(random.New(7), 20000)
	require.NoError(t, err)
	require.Equal(t, 20000, frame.Len())

	share, err := statistic.NewEngine().Compute(frame, statistic.ProportionEqual("Black"), LabelColumn)
	require.NoError(t, err)
	assert.InDelta(t, 0.26, share, 0.015)
}

func TestCategoricalSampleProportionsSumToOne(t *testing.T) {
	props, err := jury.SampleProportions(random.New(11), 100)
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.InDelta(t, 1.0, props[0]+props[1], 1e-12)
}

func TestCategoricalRejectsBadProbabilities(t *testing.T) {
	cases := map[string]Categorical{
		"negative":   {Labels: []string{"a", "b"}, Probs: []float64{-0.1, 1.1}},
		"all zero":   {Labels: []string{"a", "b"}, Probs: []float64{0, 0}},
		"misaligned": {Labels: []string{"a", "b"}, Probs: []float64{1}},
		"empty":      {},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Sample(random.New(1), 10)
			assert.ErrorIs(t, err, core.ErrInvalidWeights)
		})
	}
}

func TestCategoricalIsReproducible(t *testing.T) {
	a, err := jury.Sample(random.New(99), 50)
	require.NoError(t, err)
	b, err := jury.Sample(random.New(99), 50)
	require.NoError(t, err)

	la, _ := dataset.Strings(a, LabelColumn)
	lb, _ := dataset.Strings(b, LabelColumn)
	assert.Equal(t, la, lb)
}

func TestProportionSimulateRange(t *testing.T) {
	src := random.New(3)
	m := Proportion{P: 0.5, N: 100}
	for i := 0; i < 200; i++ {
		v, err := m.Simulate(src)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	v, err := Proportion{P: 0, N: 10}.Simulate(src)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
	v, err = Proportion{P: 1, N: 10}.Simulate(src)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = Proportion{P: 1.5, N: 10}.Simulate(src)
	assert.ErrorIs(t, err, core.ErrInvalidWeights)
	_, err = Proportion{P: 0.5, N: 0}.Simulate(src)
	assert.ErrorIs(t, err, core.ErrInvalidSampleSize)
}

// A fair-coin null never comes close to a panel with 8% Black jurors.
func TestFairCoinNullRejectsSwainPanel(t *testing.T) {
	m := Proportion{P: 0.5, N: 100}
	d, err := simulation.NewRunner(simulation.WithWorkers(4)).RunStreams(context.Background(), random.New(1965),
		func(src *random.Source) (float64, error) { return m.Simulate(src) }, 10000)
	require.NoError(t, err)

	p, err := d.PValue(0.08, verdict.Less)
	require.NoError(t, err)
	assert.Less(t, p, 0.001)
}

func TestJuryModelNullCentersOnPopulationShare(t *testing.T) {
	engine := statistic.NewEngine()
	d, err := simulation.NewRunner().RunStreams(context.Background(), random.New(26),
		func(src *random.Source) (float64, error) {
			panel, err := jury.Sample(src, 100)
			if err != nil {
				return 0, err
			}
			return engine.Compute(panel, statistic.ProportionEqual("Black"), LabelColumn)
		}, 2000)
	require.NoError(t, err)

	median, err := d.Percentile(50)
	require.NoError(t, err)
	assert.InDelta(t, 0.26, median, 0.03)

	p, err := d.PValue(0.08, verdict.TwoSided, distribution.WithCenter(0.26))
	require.NoError(t, err)
	assert.Less(t, p, 0.01)
}

func TestNormalSample(t *testing.T) {
	frame, err := Normal{Mu: 100, Sigma: 15}.Sample(random.New(5), 5000)
	require.NoError(t, err)
	mean, err := statistic.NewEngine().Compute(frame, statistic.Mean, ValueColumn)
	require.NoError(t, err)
	assert.InDelta(t, 100, mean, 1.5)

	_, err = Normal{Mu: 0, Sigma: 0}.Sample(random.New(5), 10)
	assert.Error(t, err)
}
