package testkit

import (
	"fmt"
	"math"

	"gosim/domain/dataset"
	"gosim/internal/random"

	"gonum.org/v1/gonum/stat/distuv"
)

// Integers returns the population lo..hi in a single "x" column
func Integers(lo, hi int) *dataset.Frame {
	values := make([]float64, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, float64(v))
	}
	return dataset.FromFloat64s("x", values)
}

// SalaryConfig configures the skewed salary population
type SalaryConfig struct {
	Count  int     `json:"count"`
	Median float64 `json:"median"`
	Spread float64 `json:"spread"` // sigma of the underlying normal
	Seed   int64   `json:"seed"`
}

// DefaultSalaryConfig returns a right-skewed population of 5000 salaries
func DefaultSalaryConfig() SalaryConfig {
	return SalaryConfig{
		Count:  5000,
		Median: 60000,
		Spread: 0.6,
		Seed:   2015,
	}
}

// Salaries draws a log-normal salary population into a "salary" column,
// rounded to whole units. The long right tail makes mean and median differ,
// which is what bootstrap-median exercises need.
func Salaries(config SalaryConfig) *dataset.Frame {
	dist := distuv.LogNormal{Mu: math.Log(config.Median), Sigma: config.Spread, Src: random.New(config.Seed)}
	values := make([]float64, config.Count)
	for i := range values {
		values[i] = math.Round(dist.Rand())
	}
	return dataset.FromFloat64s("salary", values)
}

// FishConfig configures the two-species fish population
type FishConfig struct {
	Count       int     `json:"count"`
	ShareTrout  float64 `json:"share_trout"`
	TroutMean   float64 `json:"trout_mean"`
	SalmonMean  float64 `json:"salmon_mean"`
	WeightSigma float64 `json:"weight_sigma"`
	Seed        int64   `json:"seed"`
}

// DefaultFishConfig returns a 10000-fish population, 40% trout
func DefaultFishConfig() FishConfig {
	return FishConfig{
		Count:       10000,
		ShareTrout:  0.4,
		TroutMean:   2.0,
		SalmonMean:  3.5,
		WeightSigma: 0.5,
		Seed:        42,
	}
}

// Fish returns a population with a "species" label and a "weight" column
func Fish(config FishConfig) *dataset.Frame {
	src := random.New(config.Seed)
	species := make([]string, config.Count)
	weights := make([]float64, config.Count)
	for i := range species {
		mean := config.SalmonMean
		species[i] = "salmon"
		if src.Float64() < config.ShareTrout {
			mean = config.TroutMean
			species[i] = "trout"
		}
		weights[i] = math.Max(0.1, mean+config.WeightSigma*src.NormFloat64())
	}
	frame, err := dataset.NewFrame(
		dataset.Column{Name: "species", Kind: dataset.KindCategorical, Labels: species},
		dataset.Column{Name: "weight", Kind: dataset.KindNumeric, Numbers: weights},
	)
	if err != nil {
		panic(fmt.Sprintf("testkit: fish population: %v", err))
	}
	return frame
}

// TwoGroups returns two numeric samples in a "value" column, the second
// shifted by shift. With shift 0 both come from the same population.
func TwoGroups(seed int64, sizeA, sizeB int, shift float64) (*dataset.Frame, *dataset.Frame) {
	dist := distuv.Normal{Mu: 100, Sigma: 15, Src: random.New(seed)}
	a := make([]float64, sizeA)
	for i := range a {
		a[i] = dist.Rand()
	}
	b := make([]float64, sizeB)
	for i := range b {
		b[i] = dist.Rand() + shift
	}
	return dataset.FromFloat64s("value", a), dataset.FromFloat64s("value", b)
}
