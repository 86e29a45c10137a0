// Package model generates synthetic data under an assumed population model,
// the direct-simulation alternative to permutation when the null hypothesis
// names the population outright.
//
// Every model draws from a *random.Source, which satisfies the math/rand/v2
// Source interface gonum's distributions expect.
package model

import (
	"fmt"
	"math"

	"gosim/domain/core"
	"gosim/domain/dataset"
	"gosim/internal/random"

	"gonum.org/v1/gonum/stat/distuv"
)

// LabelColumn is the column name used for categorical draws.
const LabelColumn = "label"

// ValueColumn is the column name used for numeric draws.
const ValueColumn = "value"

// Categorical is a finite population described only by category
// proportions, e.g. 26% eligible Black jurors and 74% others.
type Categorical struct {
	Labels []string
	Probs  []float64
}

// Validate checks that labels and probabilities line up and that the
// probabilities form a usable weight vector.
func (c Categorical) Validate() error {
	if len(c.Labels) == 0 {
		return core.NewInvalidWeightsError("no categories")
	}
	if len(c.Labels) != len(c.Probs) {
		return core.NewInvalidWeightsError(fmt.Sprintf("%d labels but %d probabilities", len(c.Labels), len(c.Probs)))
	}
	total := 0.0
	for i, p := range c.Probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return core.NewInvalidWeightsError(fmt.Sprintf("probability %v for %q", p, c.Labels[i]))
		}
		total += p
	}
	if total == 0 {
		return core.NewInvalidWeightsError("probabilities sum to zero")
	}
	return nil
}

// Sample draws n labels independently with the model's probabilities. The
// probabilities are normalized, so they need not sum to exactly one.
func (c Categorical) Sample(src *random.Source, n int) (*dataset.Frame, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidSampleSize, n)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dist := distuv.NewCategorical(c.Probs, src)
	labels := make([]string, n)
	for i := range labels {
		labels[i] = c.Labels[int(dist.Rand())]
	}
	return dataset.FromStrings(LabelColumn, labels), nil
}

// SampleProportions draws n individuals and returns the fraction that fell
// in each category, in label order.
func (c Categorical) SampleProportions(src *random.Source, n int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidSampleSize, n)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dist := distuv.NewCategorical(c.Probs, src)
	counts := make([]float64, len(c.Labels))
	for i := 0; i < n; i++ {
		counts[int(dist.Rand())]++
	}
	for i := range counts {
		counts[i] /= float64(n)
	}
	return counts, nil
}

// Proportion is N independent yes/no trials, each a success with
// probability P.
type Proportion struct {
	P float64
	N int
}

// Validate checks the model parameters.
func (p Proportion) Validate() error {
	if p.N <= 0 {
		return fmt.Errorf("%w: %d", core.ErrInvalidSampleSize, p.N)
	}
	if math.IsNaN(p.P) || p.P < 0 || p.P > 1 {
		return core.NewInvalidWeightsError(fmt.Sprintf("success probability %v not in [0, 1]", p.P))
	}
	return nil
}

// Simulate returns the fraction of successes in one run of N trials.
func (p Proportion) Simulate(src *random.Source) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	switch p.P {
	case 0:
		return 0, nil
	case 1:
		return 1, nil
	}
	b := distuv.Binomial{N: float64(p.N), P: p.P, Src: src}
	return b.Rand() / float64(p.N), nil
}

// Normal is a normally distributed population.
type Normal struct {
	Mu    float64
	Sigma float64
}

// Sample draws n values into a single "value" column.
func (m Normal) Sample(src *random.Source, n int) (*dataset.Frame, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidSampleSize, n)
	}
	if math.IsNaN(m.Sigma) || m.Sigma <= 0 {
		return nil, fmt.Errorf("normal model: sigma must be positive, got %v", m.Sigma)
	}
	dist := distuv.Normal{Mu: m.Mu, Sigma: m.Sigma, Src: src}
	values := make([]float64, n)
	for i := range values {
		values[i] = dist.Rand()
	}
	return dataset.FromFloat64s(ValueColumn, values), nil
}
