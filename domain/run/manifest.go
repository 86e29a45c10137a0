package run

import (
	"gosim/domain/core"
	"gosim/domain/verdict"
)

// NewRecord starts a ledger record for a run. Results are attached with
// the With* methods once the run finishes.
func NewRecord(kind Kind, seed int64, trials, workers int, params map[string]interface{}) *Record {
	return &Record{
		ID:          core.NewRunID(),
		Kind:        kind,
		Fingerprint: NewFingerprint(kind, seed, trials, params),
		Workers:     workers,
		CreatedAt:   core.Now(),
	}
}

func (r *Record) Seed() int64 { return r.Fingerprint.Seed }
func (r *Record) Trials() int { return r.Fingerprint.Trials }

// WithObserved records the observed test statistic
func (r *Record) WithObserved(v float64) *Record {
	r.Observed = &v
	return r
}

// WithInterval records a confidence interval
func (r *Record) WithInterval(lower, upper, level float64) *Record {
	r.Lower, r.Upper, r.Level = &lower, &upper, &level
	return r
}

// WithCoverage records the fraction of intervals that captured the parameter
func (r *Record) WithCoverage(c float64) *Record {
	r.Coverage = &c
	return r
}

// WithPValue records an estimated probability, including the event
// probability of a KindEventProbability run
func (r *Record) WithPValue(p float64) *Record {
	r.PValue = &p
	return r
}

// WithVerdict records the decision and copies its p-value or interval
func (r *Record) WithVerdict(v verdict.Verdict) *Record {
	r.Verdict = &v
	if v.PValue != nil {
		r.WithPValue(*v.PValue)
	}
	return r
}

// WithSummary records the distribution summary
func (r *Record) WithSummary(s verdict.NullDistributionSummary) *Record {
	r.Summary = &s
	return r
}
