package run

import (
	"gosim/domain/core"
	"gosim/domain/verdict"
)

// Kind names the inference procedure a run performed
type Kind string

const (
	KindBootstrapInterval Kind = "bootstrap_interval"
	KindPermutationTest   Kind = "permutation_test"
	KindModelTest         Kind = "model_test"
	KindIntervalTest      Kind = "interval_test"
	KindCoverageStudy     Kind = "coverage_study"
	KindEventProbability  Kind = "event_probability"
)

// Fingerprint ensures deterministic replay: two runs with the same
// fingerprint produce the same distribution
type Fingerprint struct {
	Kind        Kind                   `json:"kind"`
	Seed        int64                  `json:"seed"`
	Trials      int                    `json:"trials"`
	Params      map[string]interface{} `json:"params,omitempty"`
	Fingerprint core.Hash              `json:"fingerprint"` // Hash of all above
}

// NewFingerprint creates a fingerprint from determinism parameters
func NewFingerprint(kind Kind, seed int64, trials int, params map[string]interface{}) Fingerprint {
	return Fingerprint{
		Kind:        kind,
		Seed:        seed,
		Trials:      trials,
		Params:      params,
		Fingerprint: core.ComputeRunFingerprint(string(kind), seed, trials, params),
	}
}

// Record is the ledger entry for one completed inference run
type Record struct {
	ID          core.RunID                       `json:"id"`
	Kind        Kind                             `json:"kind"`
	Fingerprint Fingerprint                      `json:"fingerprint"`
	Workers     int                              `json:"workers"`
	Observed    *float64                         `json:"observed,omitempty"`
	PValue      *float64                         `json:"p_value,omitempty"`
	Lower       *float64                         `json:"lower,omitempty"`
	Upper       *float64                         `json:"upper,omitempty"`
	Level       *float64                         `json:"level,omitempty"`
	Coverage    *float64                         `json:"coverage,omitempty"`
	Verdict     *verdict.Verdict                 `json:"verdict,omitempty"`
	Summary     *verdict.NullDistributionSummary `json:"summary,omitempty"`
	CreatedAt   core.Timestamp                   `json:"created_at"`
}
