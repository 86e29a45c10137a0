package app

import (
	"context"
	"fmt"
	"time"

	"gosim/domain/dataset"
	"gosim/domain/run"
	"gosim/domain/verdict"
	"gosim/internal"
	"gosim/internal/config"
	"gosim/internal/distribution"
	"gosim/internal/errors"
	"gosim/internal/random"
	"gosim/internal/resample"
	"gosim/internal/simulation"
	"gosim/internal/statistic"
	"gosim/ports"
)

// InferenceService runs the simulation-based inference procedures and
// records every run in the ledger
type InferenceService struct {
	runner   *simulation.Runner
	engine   *statistic.Engine
	ledger   ports.LedgerPort
	logger   *internal.Logger
	defaults config.SimulationConfig
}

// NewInferenceService creates an inference service. ledger may be nil, in
// which case runs are not recorded.
func NewInferenceService(defaults config.SimulationConfig, runner *simulation.Runner, ledger ports.LedgerPort, logger *internal.Logger) *InferenceService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	if runner == nil {
		runner = simulation.NewRunner(simulation.WithWorkers(defaults.Workers), simulation.WithLogger(logger))
	}
	return &InferenceService{
		runner:   runner,
		engine:   statistic.NewEngine(),
		ledger:   ledger,
		logger:   logger,
		defaults: defaults,
	}
}

// Simulation holds the knobs shared by every request. Zero values fall back
// to the service defaults.
type Simulation struct {
	Seed   *int64
	Trials int
}

// IntervalResult is the outcome of a bootstrap interval estimate
type IntervalResult struct {
	RunID    string                          `json:"run_id"`
	Estimate float64                         `json:"estimate"`
	Interval distribution.Interval           `json:"interval"`
	Summary  verdict.NullDistributionSummary `json:"summary"`
	Seed     int64                           `json:"seed"`
}

// BootstrapRequest asks for a percentile bootstrap interval of a statistic
type BootstrapRequest struct {
	Simulation
	Sample    dataset.Dataset
	Column    string
	Statistic statistic.Reducer
	Level     float64 // percent; 0 uses the configured confidence
}

// BootstrapInterval resamples the sample with replacement, computes the
// statistic on each resample and returns the central Level% interval
func (s *InferenceService) BootstrapInterval(ctx context.Context, req BootstrapRequest) (*IntervalResult, error) {
	if err := validateSample(req.Sample, req.Statistic); err != nil {
		return nil, err
	}
	sampleHash, err := contentHash(req.Sample)
	if err != nil {
		return nil, err
	}
	level := s.level(req.Level)
	src, err := s.source(req.Seed)
	if err != nil {
		return nil, err
	}
	trials := s.trials(req.Trials)

	estimate, err := s.engine.Compute(req.Sample, req.Statistic, req.Column)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute sample statistic")
	}

	dist, err := s.bootstrap(ctx, s.runner, src, req.Sample, req.Statistic, req.Column, trials)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap simulation failed")
	}
	ci, err := dist.ConfidenceInterval(level)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute interval")
	}
	summary := distribution.Summarize(dist)

	rec := run.NewRecord(run.KindBootstrapInterval, src.Seed(), trials, s.runner.Workers(), map[string]interface{}{
		"column":    req.Column,
		"statistic": req.Statistic.Name(),
		"level":     level,
		"n":         req.Sample.Len(),
		"sample":    sampleHash,
	})
	rec.WithObserved(estimate).WithInterval(ci.Lower, ci.Upper, ci.Level).WithSummary(summary)
	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("bootstrap %s of %q: estimate %g, %s (seed %d, %d trials)",
		req.Statistic.Name(), req.Column, estimate, ci, src.Seed(), trials)
	return &IntervalResult{
		RunID:    rec.ID.String(),
		Estimate: estimate,
		Interval: ci,
		Summary:  summary,
		Seed:     src.Seed(),
	}, nil
}

// bootstrap builds the bootstrap distribution of r over sample, one random
// stream per trial
func (s *InferenceService) bootstrap(ctx context.Context, runner *simulation.Runner, src *random.Source, sample dataset.Dataset, r statistic.Reducer, column string, trials int) (*distribution.Empirical, error) {
	return runner.RunStreams(ctx, src, func(stream *random.Source) (float64, error) {
		rs, err := resample.New(stream).BootstrapResample(sample)
		if err != nil {
			return 0, err
		}
		return s.engine.Compute(rs, r, column)
	}, trials)
}

// CoverageRequest describes an interval coverage study
type CoverageRequest struct {
	Simulation                    // Trials is the number of intervals built
	Population      dataset.Dataset
	Column          string
	Statistic       statistic.Reducer
	SampleSize      int
	BootstrapTrials int
	Level           float64
}

// CoverageResult reports how often the bootstrap intervals caught the
// population parameter
type CoverageResult struct {
	RunID     string  `json:"run_id"`
	Parameter float64 `json:"parameter"`
	Intervals int     `json:"intervals"`
	Coverage  float64 `json:"coverage"`
	Level     float64 `json:"level"`
	Seed      int64   `json:"seed"`
}

// CoverageStudy repeatedly draws a fresh sample from the population,
// bootstraps a Level% interval from it and counts the intervals that
// contain the population parameter. A well-behaved procedure covers close
// to Level% of the time.
func (s *InferenceService) CoverageStudy(ctx context.Context, req CoverageRequest) (*CoverageResult, error) {
	if err := validateSample(req.Population, req.Statistic); err != nil {
		return nil, err
	}
	if req.SampleSize <= 0 || req.SampleSize > req.Population.Len() {
		return nil, errors.InvalidInput(fmt.Sprintf("sample size %d must be in [1, %d]", req.SampleSize, req.Population.Len()))
	}
	populationHash, err := contentHash(req.Population)
	if err != nil {
		return nil, err
	}
	level := s.level(req.Level)
	intervals := s.trials(req.Trials)
	bootTrials := req.BootstrapTrials
	if bootTrials <= 0 {
		bootTrials = s.defaults.Trials
	}
	src, err := s.source(req.Seed)
	if err != nil {
		return nil, err
	}

	parameter, err := s.engine.Compute(req.Population, req.Statistic, req.Column)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute population parameter")
	}

	// Intervals run in parallel; each interval's bootstrap stays on its own
	// stream and runs sequentially.
	inner := simulation.NewRunner()
	covered, err := simulation.EstimateProbabilityContext(ctx, s.runner, src, func(ctx context.Context, stream *random.Source) (bool, error) {
		sample, err := resample.New(stream).SimpleRandomSample(req.Population, req.SampleSize)
		if err != nil {
			return false, err
		}
		dist, err := s.bootstrap(ctx, inner, stream, sample, req.Statistic, req.Column, bootTrials)
		if err != nil {
			return false, err
		}
		ci, err := dist.ConfidenceInterval(level)
		if err != nil {
			return false, err
		}
		return ci.Contains(parameter), nil
	}, intervals)
	if err != nil {
		return nil, errors.Wrap(err, "coverage simulation failed")
	}

	rec := run.NewRecord(run.KindCoverageStudy, src.Seed(), intervals, s.runner.Workers(), map[string]interface{}{
		"column":           req.Column,
		"statistic":        req.Statistic.Name(),
		"level":            level,
		"sample_size":      req.SampleSize,
		"bootstrap_trials": bootTrials,
		"population":       populationHash,
	})
	rec.WithObserved(parameter).WithCoverage(covered)
	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("coverage of %g%% bootstrap intervals for %s: %.3f over %d intervals",
		level, req.Statistic.Name(), covered, intervals)
	return &CoverageResult{
		RunID:     rec.ID.String(),
		Parameter: parameter,
		Intervals: intervals,
		Coverage:  covered,
		Level:     level,
		Seed:      src.Seed(),
	}, nil
}

// EventRequest asks for the probability of a simulated event
type EventRequest struct {
	Simulation
	Name  string
	Event func(src *random.Source) (bool, error)
}

// ProbabilityResult is an estimated event probability
type ProbabilityResult struct {
	RunID       string  `json:"run_id"`
	Probability float64 `json:"probability"`
	Trials      int     `json:"trials"`
	Seed        int64   `json:"seed"`
}

// EventProbability estimates how often Event occurs
func (s *InferenceService) EventProbability(ctx context.Context, req EventRequest) (*ProbabilityResult, error) {
	if req.Event == nil {
		return nil, errors.InvalidInput("event is required")
	}
	trials := s.trials(req.Trials)
	src, err := s.source(req.Seed)
	if err != nil {
		return nil, err
	}

	p, err := simulation.EstimateProbability(ctx, s.runner, src, req.Event, trials)
	if err != nil {
		return nil, errors.Wrap(err, "event simulation failed")
	}

	rec := run.NewRecord(run.KindEventProbability, src.Seed(), trials, s.runner.Workers(), map[string]interface{}{"event": req.Name})
	rec.WithPValue(p)
	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}
	return &ProbabilityResult{RunID: rec.ID.String(), Probability: p, Trials: trials, Seed: src.Seed()}, nil
}

func (s *InferenceService) source(seed *int64) (*random.Source, error) {
	switch {
	case seed != nil:
		return random.New(*seed), nil
	case s.defaults.HasSeed:
		return random.New(s.defaults.Seed), nil
	}
	src, err := random.NewFromEntropy()
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed random source")
	}
	return src, nil
}

func (s *InferenceService) trials(n int) int {
	if n > 0 {
		return n
	}
	return s.defaults.Trials
}

func (s *InferenceService) level(l float64) float64 {
	if l != 0 {
		return l
	}
	return s.defaults.Confidence
}

func (s *InferenceService) alpha(a float64) float64 {
	if a != 0 {
		return a
	}
	return s.defaults.Alpha
}

func (s *InferenceService) record(ctx context.Context, rec *run.Record) error {
	if s.ledger == nil {
		return nil
	}
	start := time.Now()
	if err := s.ledger.SaveRun(ctx, rec); err != nil {
		return errors.Wrapf(err, "failed to record %s run", rec.Kind)
	}
	s.logger.Debug("recorded run %s (%s, fingerprint %s) in %s", rec.ID, rec.Kind, rec.Fingerprint.Fingerprint.Short(), time.Since(start))
	return nil
}

// contentHash identifies the data a run was computed from, so that runs on
// different data never share a fingerprint.
func contentHash(ds dataset.Dataset) (string, error) {
	h, err := dataset.ContentHash(ds)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash dataset")
	}
	return h.String(), nil
}

func validateSample(ds dataset.Dataset, r statistic.Reducer) error {
	if ds == nil {
		return errors.InvalidInput("dataset is required")
	}
	if r == nil {
		return errors.InvalidInput("statistic is required")
	}
	return nil
}
