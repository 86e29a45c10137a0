package ports

import (
	"gosim/domain/dataset"
)

// RandomSource draws individuals from a finite population. Implementations
// are seeded and reproducible: the same seed and the same call sequence
// yield the same draws.
type RandomSource interface {
	// DrawIndices returns size indices into a population of n individuals.
	// Without replacement every index appears at most once; weights, when
	// non-nil, must align with the population.
	DrawIndices(n, size int, replace bool, weights []float64) ([]int, error)

	// Draw materializes DrawIndices as a row subset of population.
	Draw(population dataset.Dataset, size int, replace bool, weights []float64) (dataset.Dataset, error)

	// Perm returns a uniformly random permutation of [0, n).
	Perm(n int) []int
}
