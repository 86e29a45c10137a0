// Package distribution summarizes empirical distributions produced by
// repeated simulation trials: percentiles, percentile confidence intervals
// and Monte Carlo p-values.
package distribution

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"gosim/domain/core"
	"gosim/domain/verdict"

	"github.com/montanaflynn/stats"
)

// Empirical is an immutable sequence of statistic values, one per trial.
// Insertion order is kept for inspection only; every query treats the
// values as a multiset.
type Empirical struct {
	values []float64

	sortOnce sync.Once
	sorted   []float64
}

// NewEmpirical copies values into a distribution. It must be non-empty.
func NewEmpirical(values []float64) (*Empirical, error) {
	if len(values) == 0 {
		return nil, core.NewInvalidTrialCountError(0)
	}
	v := make([]float64, len(values))
	copy(v, values)
	return &Empirical{values: v}, nil
}

// Len returns the number of trials.
func (d *Empirical) Len() int {
	return len(d.values)
}

// Values returns a copy of the values in trial order.
func (d *Empirical) Values() []float64 {
	out := make([]float64, len(d.values))
	copy(out, d.values)
	return out
}

// Resolution is the smallest non-zero p-value the distribution can report,
// 1/N. A reported p-value of 0 means "below 1/N", not "impossible".
func (d *Empirical) Resolution() float64 {
	return 1 / float64(len(d.values))
}

func (d *Empirical) sortedValues() []float64 {
	d.sortOnce.Do(func() {
		d.sorted = make([]float64, len(d.values))
		copy(d.sorted, d.values)
		sort.Float64s(d.sorted)
	})
	return d.sorted
}

// Percentile returns the p-th percentile, p in [0, 100], interpolating
// linearly between the two order statistics around rank p/100*(N-1).
func (d *Empirical) Percentile(p float64) (float64, error) {
	return percentileSorted(d.sortedValues(), p)
}

// Percentile computes the linear-interpolation percentile of values without
// building a distribution.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: percentile of no values", core.ErrEmptyDataset)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return 0, core.NewInvalidPercentileError(p)
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower], nil
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight, nil
}

// Interval is a confidence interval at Level percent.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// Contains reports whether x lies in the closed interval.
func (i Interval) Contains(x float64) bool {
	return i.Lower <= x && x <= i.Upper
}

// Width returns Upper - Lower.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

func (i Interval) String() string {
	return fmt.Sprintf("%g%% CI [%g, %g]", i.Level, i.Lower, i.Upper)
}

// ConfidenceInterval returns the central level-percent percentile interval,
// level in (0, 100).
func (d *Empirical) ConfidenceInterval(level float64) (Interval, error) {
	if math.IsNaN(level) || level <= 0 || level >= 100 {
		return Interval{}, core.NewInvalidConfidenceLevelError(level)
	}
	tail := (100 - level) / 2
	lower, err := d.Percentile(tail)
	if err != nil {
		return Interval{}, err
	}
	upper, err := d.Percentile(100 - tail)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Lower: lower, Upper: upper, Level: level}, nil
}

type pValueOptions struct {
	center    float64
	hasCenter bool
}

// PValueOption configures PValue.
type PValueOption func(*pValueOptions)

// WithCenter sets the center two-sided p-values measure distance from,
// normally the statistic's value under the null.
func WithCenter(center float64) PValueOption {
	return func(o *pValueOptions) {
		o.center = center
		o.hasCenter = true
	}
}

// PValue returns the fraction of the distribution at least as extreme as
// observed in the direction of orientation:
//
//	less:      mean(d <= observed)
//	greater:   mean(d >= observed)
//	two_sided: mean(|d - center| >= |observed - center|)
//
// Two-sided p-values require WithCenter.
func (d *Empirical) PValue(observed float64, orientation verdict.Orientation, opts ...PValueOption) (float64, error) {
	var o pValueOptions
	for _, opt := range opts {
		opt(&o)
	}

	count := 0
	switch orientation {
	case verdict.Less:
		for _, v := range d.values {
			if v <= observed {
				count++
			}
		}
	case verdict.Greater:
		for _, v := range d.values {
			if v >= observed {
				count++
			}
		}
	case verdict.TwoSided:
		if !o.hasCenter {
			return 0, core.ErrMissingCenter
		}
		threshold := math.Abs(observed - o.center)
		for _, v := range d.values {
			if math.Abs(v-o.center) >= threshold {
				count++
			}
		}
	default:
		return 0, fmt.Errorf("unknown orientation %q", orientation)
	}
	return float64(count) / float64(len(d.values)), nil
}

// Summarize reports the moments and tail percentiles of d. StdDev uses the
// population formula, like the variance reducer.
func Summarize(d *Empirical) verdict.NullDistributionSummary {
	sorted := d.sortedValues()
	mean, _ := stats.Mean(sorted)
	std, _ := stats.StandardDeviationPopulation(sorted)
	p5, _ := percentileSorted(sorted, 5)
	p95, _ := percentileSorted(sorted, 95)
	p99, _ := percentileSorted(sorted, 99)
	return verdict.NullDistributionSummary{
		N:            len(sorted),
		Mean:         mean,
		StdDev:       std,
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Percentile5:  p5,
		Percentile95: p95,
		Percentile99: p99,
	}
}
