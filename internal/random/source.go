// Package random provides the seeded random source every simulation draws
// from. A Source is an explicit handle rather than package state, so
// independent simulations never share a stream by accident.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gosim/domain/core"
	"gosim/domain/dataset"
)

// golden is the 64-bit golden-ratio constant used to spread stream ids.
const golden = 0x9E3779B97F4A7C15

// Source is a seeded PCG stream. It is not safe for concurrent use; give
// each goroutine its own stream via Stream.
type Source struct {
	seed   int64
	stream uint64
	rng    *rand.Rand
}

// New creates a source for the given seed.
func New(seed int64) *Source {
	return newStream(seed, 0)
}

// NewFromEntropy creates a source whose seed is read once from the
// operating system. The chosen seed is available from Seed so the run can
// be replayed.
func NewFromEntropy() (*Source, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to read seed entropy: %w", err)
	}
	return New(int64(binary.LittleEndian.Uint64(buf[:]) >> 1)), nil
}

func newStream(seed int64, stream uint64) *Source {
	return &Source{
		seed:   seed,
		stream: stream,
		rng:    rand.New(rand.NewPCG(uint64(seed), stream)),
	}
}

// Seed returns the root seed.
func (s *Source) Seed() int64 {
	return s.seed
}

// Reset rewinds the source to the state it had at construction.
func (s *Source) Reset() {
	s.rng = rand.New(rand.NewPCG(uint64(s.seed), s.stream))
}

// Stream derives an independent sub-stream for index. The derivation depends
// only on the root seed, this source's stream id and index, never on how
// many values have been drawn, so trial i sees the same numbers regardless
// of scheduling.
func (s *Source) Stream(index int) *Source {
	return newStream(s.seed, s.stream*golden+uint64(index)+1)
}

// Uint64 makes Source a math/rand/v2 Source, so gonum distributions can draw
// from it directly.
func (s *Source) Uint64() uint64 { return s.rng.Uint64() }

func (s *Source) Float64() float64     { return s.rng.Float64() }
func (s *Source) NormFloat64() float64 { return s.rng.NormFloat64() }
func (s *Source) IntN(n int) int       { return s.rng.IntN(n) }
func (s *Source) Perm(n int) []int     { return s.rng.Perm(n) }

// DrawIndices implements ports.RandomSource.
func (s *Source) DrawIndices(n, size int, replace bool, weights []float64) ([]int, error) {
	if n < 0 || size < 0 {
		return nil, fmt.Errorf("%w: population %d, size %d", core.ErrInvalidSampleSize, n, size)
	}

	var cum []float64
	if weights != nil {
		var err error
		cum, err = cumulative(weights, n)
		if err != nil {
			return nil, err
		}
	}

	if !replace {
		if size > n {
			return nil, core.NewInsufficientPopulationError(size, n)
		}
		if weights == nil {
			return s.partialShuffle(n, size), nil
		}
		return s.weightedWithoutReplacement(weights, size)
	}

	if size > 0 && n == 0 {
		return nil, core.NewInsufficientPopulationError(size, n)
	}
	out := make([]int, size)
	for i := range out {
		if cum == nil {
			out[i] = s.rng.IntN(n)
		} else {
			out[i] = s.pick(cum)
		}
	}
	return out, nil
}

// Draw implements ports.RandomSource.
func (s *Source) Draw(population dataset.Dataset, size int, replace bool, weights []float64) (dataset.Dataset, error) {
	indices, err := s.DrawIndices(population.Len(), size, replace, weights)
	if err != nil {
		return nil, err
	}
	return population.Subset(indices)
}

// partialShuffle runs the first size steps of a Fisher-Yates shuffle, which
// makes every size-subset (and every ordering of it) equally likely.
func (s *Source) partialShuffle(n, size int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < size; i++ {
		j := i + s.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	out := make([]int, size)
	copy(out, idx[:size])
	return out
}

func (s *Source) weightedWithoutReplacement(weights []float64, size int) ([]int, error) {
	remaining := make([]float64, len(weights))
	copy(remaining, weights)

	out := make([]int, 0, size)
	for len(out) < size {
		total := 0.0
		for _, w := range remaining {
			total += w
		}
		if total <= 0 {
			return nil, fmt.Errorf("%w: only %d individuals have positive weight, requested %d",
				core.ErrInsufficientPopulation, len(out), size)
		}
		u := s.rng.Float64() * total
		chosen := len(remaining) - 1
		acc := 0.0
		for i, w := range remaining {
			acc += w
			if w > 0 && u < acc {
				chosen = i
				break
			}
		}
		// Float rounding can leave u == acc on the last step; walk back to a
		// positive weight.
		for remaining[chosen] <= 0 {
			chosen--
		}
		out = append(out, chosen)
		remaining[chosen] = 0
	}
	return out, nil
}

// pick returns the first index whose cumulative weight exceeds a uniform
// draw, so zero-weight individuals are never chosen.
func (s *Source) pick(cum []float64) int {
	total := cum[len(cum)-1]
	u := s.rng.Float64() * total
	return sort.Search(len(cum), func(i int) bool { return cum[i] > u })
}

func cumulative(weights []float64, n int) ([]float64, error) {
	if len(weights) != n {
		return nil, core.NewInvalidWeightsError(fmt.Sprintf("%d weights for population of %d", len(weights), n))
	}
	cum := make([]float64, n)
	total := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, core.NewInvalidWeightsError(fmt.Sprintf("weight %d is %v", i, w))
		}
		total += w
		cum[i] = total
	}
	if total == 0 {
		return nil, core.NewInvalidWeightsError("all weights are zero")
	}
	return cum, nil
}
