// Package statistic computes scalar summaries of datasets.
package statistic

import (
	"errors"
	"fmt"
	"math"

	"gosim/domain/core"
	"gosim/domain/dataset"
)

// Engine evaluates reducers against datasets and normalizes their failures.
type Engine struct{}

// NewEngine creates a statistic engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute applies r to the named column of ds. Every reducer needs at least
// one row, so an empty dataset fails with ErrEmptyDataset before r runs.
func (e *Engine) Compute(ds dataset.Dataset, r Reducer, column string) (float64, error) {
	if ds == nil || ds.Len() == 0 {
		return 0, fmt.Errorf("%w: %s of %q", core.ErrEmptyDataset, r.Name(), column)
	}
	v, err := r.Reduce(ds, column)
	if err != nil {
		if isDomainError(err) {
			return 0, err
		}
		return 0, core.NewStatisticUndefinedError(r.Name(), err)
	}
	if math.IsNaN(v) {
		return 0, core.NewStatisticUndefinedError(r.Name(), errors.New("result is NaN"))
	}
	return v, nil
}

// Difference computes r(a) - r(b), the usual two-sample test statistic.
func (e *Engine) Difference(a, b dataset.Dataset, r Reducer, column string) (float64, error) {
	va, err := e.Compute(a, r, column)
	if err != nil {
		return 0, fmt.Errorf("group A: %w", err)
	}
	vb, err := e.Compute(b, r, column)
	if err != nil {
		return 0, fmt.Errorf("group B: %w", err)
	}
	return va - vb, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, core.ErrEmptyDataset) ||
		errors.Is(err, core.ErrStatisticUndefined) ||
		errors.Is(err, core.ErrColumnNotFound) ||
		errors.Is(err, core.ErrColumnType)
}
