package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Sampling errors
	ErrInsufficientPopulation = errors.New("insufficient population")
	ErrInvalidWeights         = errors.New("invalid weights")
	ErrInvalidSampleSize      = errors.New("invalid sample size")

	// Statistic errors
	ErrEmptyDataset       = errors.New("empty dataset")
	ErrStatisticUndefined = errors.New("statistic undefined")
	ErrColumnNotFound     = errors.New("column not found")
	ErrColumnType         = errors.New("column has wrong type")
	ErrLengthMismatch     = errors.New("length mismatch")

	// Parameter errors
	ErrInvalidPercentile      = errors.New("invalid percentile")
	ErrInvalidConfidenceLevel = errors.New("invalid confidence level")
	ErrInvalidTrialCount      = errors.New("invalid trial count")
	ErrInvalidSignificance    = errors.New("invalid significance level")
	ErrMissingCenter          = errors.New("two-sided p-value requires a center")

	// Hypothesis lifecycle errors
	ErrHypothesisAlreadyDeclared = errors.New("hypothesis already declared")
	ErrInvalidState              = errors.New("invalid hypothesis test state")
	ErrNotFound                  = errors.New("resource not found")
	ErrRunNotFound               = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewInsufficientPopulationError(size, available int) error {
	return fmt.Errorf("%w: requested %d without replacement from %d", ErrInsufficientPopulation, size, available)
}

func NewInvalidWeightsError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidWeights, reason)
}

func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
}

func NewColumnTypeError(column, want string) error {
	return fmt.Errorf("%w: %q is not %s", ErrColumnType, column, want)
}

func NewStatisticUndefinedError(statistic string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrStatisticUndefined, statistic)
	}
	return fmt.Errorf("%w: %s: %w", ErrStatisticUndefined, statistic, cause)
}

func NewInvalidPercentileError(p float64) error {
	return fmt.Errorf("%w: %v not in [0, 100]", ErrInvalidPercentile, p)
}

func NewInvalidConfidenceLevelError(level float64) error {
	return fmt.Errorf("%w: %v not in (0, 100)", ErrInvalidConfidenceLevel, level)
}

func NewInvalidTrialCountError(n int) error {
	return fmt.Errorf("%w: %d", ErrInvalidTrialCount, n)
}

// Error checking helpers
func IsSamplingError(err error) bool {
	return errors.Is(err, ErrInsufficientPopulation) ||
		errors.Is(err, ErrInvalidWeights) ||
		errors.Is(err, ErrInvalidSampleSize)
}

func IsParameterError(err error) bool {
	return errors.Is(err, ErrInvalidPercentile) ||
		errors.Is(err, ErrInvalidConfidenceLevel) ||
		errors.Is(err, ErrInvalidTrialCount) ||
		errors.Is(err, ErrInvalidSignificance) ||
		errors.Is(err, ErrMissingCenter)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
