// Package resample builds synthetic datasets from an observed one: simple
// random samples, bootstrap resamples and label permutations.
package resample

import (
	"fmt"

	"gosim/domain/dataset"
	"gosim/ports"
)

// Resampler draws new datasets through a RandomSource.
type Resampler struct {
	src ports.RandomSource
}

// New creates a resampler over src.
func New(src ports.RandomSource) *Resampler {
	return &Resampler{src: src}
}

// SimpleRandomSample draws n individuals from population without replacement.
func (r *Resampler) SimpleRandomSample(population dataset.Dataset, n int) (dataset.Dataset, error) {
	return r.src.Draw(population, n, false, nil)
}

// BootstrapResample draws len(sample) individuals from sample with
// replacement. The size is always the sample's own size; percentile
// intervals built from the result assume it.
func (r *Resampler) BootstrapResample(sample dataset.Dataset) (dataset.Dataset, error) {
	return r.src.Draw(sample, sample.Len(), true, nil)
}

// PermuteLabels pools both groups, shuffles the pool without replacement
// and splits it back into groups of the original sizes.
func (r *Resampler) PermuteLabels(groupA, groupB dataset.Dataset) (dataset.Dataset, dataset.Dataset, error) {
	p, err := NewPermutation(groupA, groupB)
	if err != nil {
		return nil, nil, err
	}
	return p.Shuffle(r.src)
}

// ShuffleColumn returns ds with only the named column permuted. Row count
// and the multiset of values in every column are preserved.
func (r *Resampler) ShuffleColumn(ds dataset.Dataset, column string) (dataset.Dataset, error) {
	target, err := ds.Column(column)
	if err != nil {
		return nil, err
	}
	perm := r.src.Perm(ds.Len())

	shuffled := dataset.Column{Name: target.Name, Kind: target.Kind}
	if target.Kind == dataset.KindCategorical {
		shuffled.Labels = make([]string, len(perm))
		for i, j := range perm {
			shuffled.Labels[i] = target.Labels[j]
		}
	} else {
		shuffled.Numbers = make([]float64, len(perm))
		for i, j := range perm {
			shuffled.Numbers[i] = target.Numbers[j]
		}
	}

	cols := make([]dataset.Column, 0, len(ds.ColumnNames()))
	for _, name := range ds.ColumnNames() {
		if name == column {
			cols = append(cols, shuffled)
			continue
		}
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return dataset.NewFrame(cols...)
}

// Permutation holds the pooled rows of two groups so repeated shuffles do
// not re-concatenate them on every trial.
type Permutation struct {
	pooled dataset.Dataset
	sizeA  int
	sizeB  int
}

// NewPermutation pools groupA and groupB.
func NewPermutation(groupA, groupB dataset.Dataset) (*Permutation, error) {
	pooled, err := dataset.Concat(groupA, groupB)
	if err != nil {
		return nil, fmt.Errorf("failed to pool groups: %w", err)
	}
	return &Permutation{pooled: pooled, sizeA: groupA.Len(), sizeB: groupB.Len()}, nil
}

// Sizes returns the sizes of the two groups.
func (p *Permutation) Sizes() (int, int) {
	return p.sizeA, p.sizeB
}

// Shuffle draws one relabeling of the pooled rows using src.
func (p *Permutation) Shuffle(src ports.RandomSource) (dataset.Dataset, dataset.Dataset, error) {
	perm := src.Perm(p.pooled.Len())
	a, err := p.pooled.Subset(perm[:p.sizeA])
	if err != nil {
		return nil, nil, err
	}
	b, err := p.pooled.Subset(perm[p.sizeA:])
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}
