// Package hypothesis composes simulation and distribution summaries into a
// single-decision hypothesis test.
//
// A Test moves through four states:
//
//	Declared -> NullDistributionGenerated -> Evaluated -> Decided
//
// The significance level and alternative orientation are fixed once the null
// distribution exists, so they cannot be tuned after looking at simulated
// data. Each Test produces exactly one decision, by p-value or by
// confidence interval.
package hypothesis

import (
	"context"
	"fmt"
	"math"

	"gosim/domain/core"
	"gosim/domain/verdict"
	"gosim/internal/distribution"
	"gosim/internal/random"
	"gosim/internal/simulation"
)

// State is a Test's lifecycle position.
type State string

const (
	StateDeclared                  State = "declared"
	StateNullDistributionGenerated State = "null_distribution_generated"
	StateEvaluated                 State = "evaluated"
	StateDecided                   State = "decided"
)

// Test is one hypothesis test instance. It is not safe for concurrent use.
type Test struct {
	id          core.TestID
	null        string
	orientation verdict.Orientation
	alpha       float64
	nullValue   *float64

	state    State
	dist     *distribution.Empirical
	method   verdict.Method
	observed float64
	pValue   float64
	interval distribution.Interval
	verdict  verdict.Verdict
}

// Option configures a Test at declaration.
type Option func(*Test)

// WithNullValue records the parameter value the null hypothesis asserts. It
// is the center for two-sided p-values and the point the interval method
// checks.
func WithNullValue(v float64) Option {
	return func(t *Test) {
		t.nullValue = &v
	}
}

// Declare creates a test in the Declared state.
func Declare(null string, orientation verdict.Orientation, alpha float64, opts ...Option) (*Test, error) {
	if !orientation.Valid() {
		return nil, fmt.Errorf("unknown orientation %q", orientation)
	}
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	t := &Test{
		id:          core.NewTestID(),
		null:        null,
		orientation: orientation,
		alpha:       alpha,
		state:       StateDeclared,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func validateAlpha(alpha float64) error {
	if math.IsNaN(alpha) || alpha <= 0 || alpha >= 1 {
		return fmt.Errorf("%w: %v not in (0, 1)", core.ErrInvalidSignificance, alpha)
	}
	return nil
}

func (t *Test) ID() core.TestID                  { return t.id }
func (t *Test) Null() string                     { return t.null }
func (t *Test) Orientation() verdict.Orientation { return t.orientation }
func (t *Test) Alpha() float64                   { return t.alpha }
func (t *Test) State() State                     { return t.state }

// NullValue returns the declared null parameter, if any.
func (t *Test) NullValue() (float64, bool) {
	if t.nullValue == nil {
		return 0, false
	}
	return *t.nullValue, true
}

// Distribution returns the generated distribution, or nil before
// generation.
func (t *Test) Distribution() *distribution.Empirical {
	return t.dist
}

func (t *Test) mutable() error {
	if t.state != StateDeclared {
		return fmt.Errorf("%w: test is %s", core.ErrHypothesisAlreadyDeclared, t.state)
	}
	return nil
}

// SetAlpha changes the significance level. Only allowed while Declared.
func (t *Test) SetAlpha(alpha float64) error {
	if err := t.mutable(); err != nil {
		return err
	}
	if err := validateAlpha(alpha); err != nil {
		return err
	}
	t.alpha = alpha
	return nil
}

// SetOrientation changes the alternative. Only allowed while Declared.
func (t *Test) SetOrientation(o verdict.Orientation) error {
	if err := t.mutable(); err != nil {
		return err
	}
	if !o.Valid() {
		return fmt.Errorf("unknown orientation %q", o)
	}
	t.orientation = o
	return nil
}

// SetNullValue changes the null parameter. Only allowed while Declared.
func (t *Test) SetNullValue(v float64) error {
	if err := t.mutable(); err != nil {
		return err
	}
	t.nullValue = &v
	return nil
}

func (t *Test) expect(want State) error {
	if t.state != want {
		return fmt.Errorf("%w: test is %s, want %s", core.ErrInvalidState, t.state, want)
	}
	return nil
}

// GenerateNull runs trial n times sequentially and stores the result as the
// null distribution.
func (t *Test) GenerateNull(ctx context.Context, runner *simulation.Runner, trial simulation.TrialFunc, n int) error {
	if err := t.expect(StateDeclared); err != nil {
		return err
	}
	d, err := runner.Run(ctx, trial, n)
	if err != nil {
		return err
	}
	return t.UseNullDistribution(d)
}

// GenerateNullStreams is GenerateNull with one random stream per trial, so
// the runner may spread trials over workers.
func (t *Test) GenerateNullStreams(ctx context.Context, runner *simulation.Runner, src *random.Source, trial simulation.StreamTrialFunc, n int) error {
	if err := t.expect(StateDeclared); err != nil {
		return err
	}
	d, err := runner.RunStreams(ctx, src, trial, n)
	if err != nil {
		return err
	}
	return t.UseNullDistribution(d)
}

// UseNullDistribution adopts a distribution produced elsewhere. For the
// interval method this is the bootstrap distribution of the estimate.
func (t *Test) UseNullDistribution(d *distribution.Empirical) error {
	if err := t.expect(StateDeclared); err != nil {
		return err
	}
	if d == nil || d.Len() == 0 {
		return core.NewInvalidTrialCountError(0)
	}
	t.dist = d
	t.state = StateNullDistributionGenerated
	return nil
}

// EvaluatePValue computes the p-value of observed against the null
// distribution. Two-sided tests measure distance from the null value.
func (t *Test) EvaluatePValue(observed float64) (float64, error) {
	if err := t.expect(StateNullDistributionGenerated); err != nil {
		return 0, err
	}
	var opts []distribution.PValueOption
	if t.orientation == verdict.TwoSided {
		if t.nullValue == nil {
			return 0, core.ErrMissingCenter
		}
		opts = append(opts, distribution.WithCenter(*t.nullValue))
	}
	p, err := t.dist.PValue(observed, t.orientation, opts...)
	if err != nil {
		return 0, err
	}
	t.method = verdict.MethodPValue
	t.observed = observed
	t.pValue = p
	t.state = StateEvaluated
	return p, nil
}

// EvaluateInterval computes the 100*(1-alpha)% percentile interval of the
// generated distribution. It needs a two-sided alternative and a null value.
func (t *Test) EvaluateInterval() (distribution.Interval, error) {
	if err := t.expect(StateNullDistributionGenerated); err != nil {
		return distribution.Interval{}, err
	}
	if t.orientation != verdict.TwoSided {
		return distribution.Interval{}, fmt.Errorf("%w: interval method needs a two-sided alternative, have %s",
			core.ErrInvalidState, t.orientation)
	}
	if t.nullValue == nil {
		return distribution.Interval{}, core.ErrMissingCenter
	}
	ci, err := t.dist.ConfidenceInterval(100 * (1 - t.alpha))
	if err != nil {
		return distribution.Interval{}, err
	}
	t.method = verdict.MethodConfidenceInterval
	t.interval = ci
	t.state = StateEvaluated
	return ci, nil
}

// Decide renders the verdict. Calling it again returns the same verdict.
func (t *Test) Decide() (verdict.Verdict, error) {
	if t.state == StateDecided {
		return t.verdict, nil
	}
	if err := t.expect(StateEvaluated); err != nil {
		return verdict.Verdict{}, err
	}

	v := verdict.Verdict{Method: t.method, Alpha: t.alpha}
	switch t.method {
	case verdict.MethodPValue:
		p := t.pValue
		v.PValue = &p
		if p < t.alpha {
			v.Decision, v.Reason = verdict.Reject, verdict.ReasonStatisticallySignificant
		} else {
			v.Decision, v.Reason = verdict.FailToReject, verdict.ReasonStatisticallyInsignificant
		}
	case verdict.MethodConfidenceInterval:
		lo, hi := t.interval.Lower, t.interval.Upper
		v.Lower, v.Upper = &lo, &hi
		if t.interval.Contains(*t.nullValue) {
			v.Decision, v.Reason = verdict.FailToReject, verdict.ReasonNullInsideInterval
		} else {
			v.Decision, v.Reason = verdict.Reject, verdict.ReasonNullOutsideInterval
		}
	}
	t.verdict = v
	t.state = StateDecided
	return v, nil
}
