package app

import (
	"context"
	"fmt"

	"gosim/domain/dataset"
	"gosim/domain/run"
	"gosim/domain/verdict"
	"gosim/internal/distribution"
	"gosim/internal/errors"
	"gosim/internal/hypothesis"
	"gosim/internal/random"
	"gosim/internal/resample"
	"gosim/internal/statistic"
)

// TestResult is the outcome of one hypothesis test
type TestResult struct {
	RunID    string                          `json:"run_id"`
	TestID   string                          `json:"test_id"`
	Null     string                          `json:"null"`
	Observed *float64                        `json:"observed,omitempty"`
	Interval *distribution.Interval          `json:"interval,omitempty"`
	Verdict  verdict.Verdict                 `json:"verdict"`
	Summary  verdict.NullDistributionSummary `json:"summary"`
	Seed     int64                           `json:"seed"`
}

// PermutationRequest compares a statistic between two groups under the
// null hypothesis that both groups come from one population
type PermutationRequest struct {
	Simulation
	GroupA      dataset.Dataset
	GroupB      dataset.Dataset
	Column      string
	Statistic   statistic.Reducer // compared as Statistic(A) - Statistic(B)
	Orientation verdict.Orientation
	Alpha       float64
}

// PermutationTest shuffles the pooled rows between the groups to simulate
// the null distribution of Statistic(A) - Statistic(B)
func (s *InferenceService) PermutationTest(ctx context.Context, req PermutationRequest) (*TestResult, error) {
	if req.GroupA == nil || req.GroupB == nil {
		return nil, errors.InvalidInput("both groups are required")
	}
	if req.Statistic == nil {
		return nil, errors.InvalidInput("statistic is required")
	}
	observed, err := s.engine.Difference(req.GroupA, req.GroupB, req.Statistic, req.Column)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute observed difference")
	}
	hashA, err := contentHash(req.GroupA)
	if err != nil {
		return nil, err
	}
	hashB, err := contentHash(req.GroupB)
	if err != nil {
		return nil, err
	}
	perm, err := resample.NewPermutation(req.GroupA, req.GroupB)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pool groups")
	}

	null := fmt.Sprintf("%s of %q is the same in both groups", req.Statistic.Name(), req.Column)
	test, err := hypothesis.Declare(null, orientationOrTwoSided(req.Orientation), s.alpha(req.Alpha), hypothesis.WithNullValue(0))
	if err != nil {
		return nil, errors.Wrap(err, "invalid hypothesis")
	}

	src, err := s.source(req.Seed)
	if err != nil {
		return nil, err
	}
	trials := s.trials(req.Trials)
	err = test.GenerateNullStreams(ctx, s.runner, src, func(stream *random.Source) (float64, error) {
		a, b, err := perm.Shuffle(stream)
		if err != nil {
			return 0, err
		}
		return s.engine.Difference(a, b, req.Statistic, req.Column)
	}, trials)
	if err != nil {
		return nil, errors.Wrap(err, "permutation simulation failed")
	}

	sizeA, sizeB := perm.Sizes()
	return s.decideByPValue(ctx, test, observed, run.KindPermutationTest, src.Seed(), trials, map[string]interface{}{
		"column":    req.Column,
		"statistic": req.Statistic.Name(),
		"n_a":       sizeA,
		"n_b":       sizeB,
		"group_a":   hashA,
		"group_b":   hashB,
	})
}

// ModelTestRequest tests an observed statistic against a fully specified
// chance model
type ModelTestRequest struct {
	Simulation
	Null        string
	Model       string // recorded in the ledger, e.g. "proportion(p=0.26,n=100)"
	Simulate    func(src *random.Source) (float64, error)
	Observed    float64
	Orientation verdict.Orientation
	NullValue   *float64 // required for two-sided tests
	Alpha       float64
}

// ModelTest simulates the statistic under the model and compares the
// observed value against that distribution
func (s *InferenceService) ModelTest(ctx context.Context, req ModelTestRequest) (*TestResult, error) {
	if req.Simulate == nil {
		return nil, errors.InvalidInput("model simulation is required")
	}
	var opts []hypothesis.Option
	if req.NullValue != nil {
		opts = append(opts, hypothesis.WithNullValue(*req.NullValue))
	}
	test, err := hypothesis.Declare(req.Null, orientationOrTwoSided(req.Orientation), s.alpha(req.Alpha), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid hypothesis")
	}

	src, err := s.source(req.Seed)
	if err != nil {
		return nil, err
	}
	trials := s.trials(req.Trials)
	if err := test.GenerateNullStreams(ctx, s.runner, src, req.Simulate, trials); err != nil {
		return nil, errors.Wrap(err, "model simulation failed")
	}

	params := map[string]interface{}{"model": req.Model}
	if v, ok := test.NullValue(); ok {
		params["null_value"] = v
	}
	return s.decideByPValue(ctx, test, req.Observed, run.KindModelTest, src.Seed(), trials, params)
}

func (s *InferenceService) decideByPValue(ctx context.Context, test *hypothesis.Test, observed float64, kind run.Kind, seed int64, trials int, params map[string]interface{}) (*TestResult, error) {
	if _, err := test.EvaluatePValue(observed); err != nil {
		return nil, errors.Wrap(err, "failed to evaluate p-value")
	}
	v, err := test.Decide()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decide")
	}

	params["alpha"] = test.Alpha()
	params["orientation"] = string(test.Orientation())
	summary := distribution.Summarize(test.Distribution())
	rec := run.NewRecord(kind, seed, trials, s.runner.Workers(), params)
	rec.WithObserved(observed).WithVerdict(v).WithSummary(summary)
	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("%s: observed %g, p-value %g, %s at alpha %g", kind, observed, *v.PValue, v.Decision, v.Alpha)
	return &TestResult{
		RunID:    rec.ID.String(),
		TestID:   test.ID().String(),
		Null:     test.Null(),
		Observed: &observed,
		Verdict:  v,
		Summary:  summary,
		Seed:     seed,
	}, nil
}

// IntervalTestRequest tests whether a population parameter equals NullValue
// by checking whether a bootstrap interval contains it
type IntervalTestRequest struct {
	Simulation
	Sample    dataset.Dataset
	Column    string
	Statistic statistic.Reducer
	NullValue float64
	Alpha     float64
}

// IntervalTest bootstraps a 100*(1-alpha)% interval for the statistic and
// rejects the null value when the interval excludes it
func (s *InferenceService) IntervalTest(ctx context.Context, req IntervalTestRequest) (*TestResult, error) {
	if err := validateSample(req.Sample, req.Statistic); err != nil {
		return nil, err
	}
	sampleHash, err := contentHash(req.Sample)
	if err != nil {
		return nil, err
	}
	null := fmt.Sprintf("population %s of %q is %g", req.Statistic.Name(), req.Column, req.NullValue)
	test, err := hypothesis.Declare(null, verdict.TwoSided, s.alpha(req.Alpha), hypothesis.WithNullValue(req.NullValue))
	if err != nil {
		return nil, errors.Wrap(err, "invalid hypothesis")
	}

	src, err := s.source(req.Seed)
	if err != nil {
		return nil, err
	}
	trials := s.trials(req.Trials)
	dist, err := s.bootstrap(ctx, s.runner, src, req.Sample, req.Statistic, req.Column, trials)
	if err != nil {
		return nil, errors.Wrap(err, "bootstrap simulation failed")
	}
	if err := test.UseNullDistribution(dist); err != nil {
		return nil, errors.Wrap(err, "failed to attach bootstrap distribution")
	}
	ci, err := test.EvaluateInterval()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute interval")
	}
	v, err := test.Decide()
	if err != nil {
		return nil, errors.Wrap(err, "failed to decide")
	}

	summary := distribution.Summarize(dist)
	rec := run.NewRecord(run.KindIntervalTest, src.Seed(), trials, s.runner.Workers(), map[string]interface{}{
		"column":     req.Column,
		"statistic":  req.Statistic.Name(),
		"null_value": req.NullValue,
		"alpha":      test.Alpha(),
		"sample":     sampleHash,
	})
	rec.WithInterval(ci.Lower, ci.Upper, ci.Level).WithVerdict(v).WithSummary(summary)
	if err := s.record(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("interval test: %s, null %g, %s", ci, req.NullValue, v.Decision)
	return &TestResult{
		RunID:    rec.ID.String(),
		TestID:   test.ID().String(),
		Null:     null,
		Interval: &ci,
		Verdict:  v,
		Summary:  summary,
		Seed:     src.Seed(),
	}, nil
}

func orientationOrTwoSided(o verdict.Orientation) verdict.Orientation {
	if o == "" {
		return verdict.TwoSided
	}
	return o
}
