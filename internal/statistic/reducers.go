package statistic

import (
	"fmt"
	"sort"
	"strings"

	"gosim/domain/core"
	"gosim/domain/dataset"

	"github.com/montanaflynn/stats"
)

// Reducer maps a dataset column to a single number.
type Reducer interface {
	Name() string
	Reduce(ds dataset.Dataset, column string) (float64, error)
}

// numericReducer applies a montanaflynn/stats function to a numeric column.
type numericReducer struct {
	name string
	fn   func(stats.Float64Data) (float64, error)
}

func (r numericReducer) Name() string { return r.name }

func (r numericReducer) Reduce(ds dataset.Dataset, column string) (float64, error) {
	values, err := dataset.Float64s(ds, column)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: %s of %q", core.ErrEmptyDataset, r.name, column)
	}
	v, err := r.fn(values)
	if err != nil {
		return 0, core.NewStatisticUndefinedError(r.name, err)
	}
	return v, nil
}

// Built-in reducers. Variance divides by n, not n-1, matching the
// population formula used for both populations and samples throughout.
var (
	Mean     Reducer = numericReducer{name: "mean", fn: stats.Mean}
	Median   Reducer = numericReducer{name: "median", fn: stats.Median}
	Max      Reducer = numericReducer{name: "max", fn: stats.Max}
	Min      Reducer = numericReducer{name: "min", fn: stats.Min}
	Variance Reducer = numericReducer{name: "variance", fn: stats.PopulationVariance}
	Sum      Reducer = numericReducer{name: "sum", fn: stats.Sum}
	Count    Reducer = countReducer{}
)

type countReducer struct{}

func (countReducer) Name() string { return "count" }

func (countReducer) Reduce(ds dataset.Dataset, column string) (float64, error) {
	if column != "" {
		if _, err := ds.Column(column); err != nil {
			return 0, err
		}
	}
	return float64(ds.Len()), nil
}

// Proportion is the fraction of numeric values satisfying pred.
func Proportion(name string, pred func(float64) bool) Reducer {
	return predicateReducer{name: name, numeric: pred}
}

// LabelProportion is the fraction of categorical values satisfying pred.
func LabelProportion(name string, pred func(string) bool) Reducer {
	return predicateReducer{name: name, label: pred}
}

// ProportionEqual is the fraction of categorical values equal to label.
func ProportionEqual(label string) Reducer {
	return LabelProportion("proportion_"+label, func(s string) bool { return s == label })
}

type predicateReducer struct {
	name    string
	numeric func(float64) bool
	label   func(string) bool
}

func (r predicateReducer) Name() string { return r.name }

func (r predicateReducer) Reduce(ds dataset.Dataset, column string) (float64, error) {
	hits, total := 0, 0
	if r.label != nil {
		labels, err := dataset.Strings(ds, column)
		if err != nil {
			return 0, err
		}
		for _, l := range labels {
			if r.label(l) {
				hits++
			}
		}
		total = len(labels)
	} else {
		values, err := dataset.Float64s(ds, column)
		if err != nil {
			return 0, err
		}
		for _, v := range values {
			if r.numeric(v) {
				hits++
			}
		}
		total = len(values)
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: %s of %q", core.ErrEmptyDataset, r.name, column)
	}
	return float64(hits) / float64(total), nil
}

// Func adapts a user-supplied statistic. Errors it returns that are not
// already domain errors are reported as ErrStatisticUndefined.
func Func(name string, fn func(ds dataset.Dataset, column string) (float64, error)) Reducer {
	return funcReducer{name: name, fn: fn}
}

type funcReducer struct {
	name string
	fn   func(dataset.Dataset, string) (float64, error)
}

func (r funcReducer) Name() string { return r.name }

func (r funcReducer) Reduce(ds dataset.Dataset, column string) (float64, error) {
	return r.fn(ds, column)
}

var builtins = map[string]Reducer{
	"mean":     Mean,
	"median":   Median,
	"max":      Max,
	"min":      Min,
	"variance": Variance,
	"sum":      Sum,
	"count":    Count,
}

// Lookup returns the built-in reducer with the given name.
func Lookup(name string) (Reducer, error) {
	r, ok := builtins[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(builtins))
		for n := range builtins {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown statistic %q (want one of %s)", name, strings.Join(names, ", "))
	}
	return r, nil
}
