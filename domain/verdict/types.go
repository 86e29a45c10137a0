package verdict

import (
	"fmt"
)

// Orientation is the direction of the alternative hypothesis.
type Orientation string

const (
	Less     Orientation = "less"
	Greater  Orientation = "greater"
	TwoSided Orientation = "two_sided"
)

// ParseOrientation accepts the canonical names plus a few common spellings.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "less", "lower", "<":
		return Less, nil
	case "greater", "upper", ">":
		return Greater, nil
	case "two_sided", "two-sided", "both", "!=":
		return TwoSided, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

func (o Orientation) Valid() bool {
	return o == Less || o == Greater || o == TwoSided
}

// Decision is the outcome of a hypothesis test.
type Decision string

const (
	Reject       Decision = "reject"
	FailToReject Decision = "fail_to_reject"
)

// Method names the procedure that produced a decision.
type Method string

const (
	MethodPValue             Method = "p_value"
	MethodConfidenceInterval Method = "confidence_interval"
)

// Reason explains a decision in terms a report can show.
type Reason string

const (
	ReasonStatisticallySignificant   Reason = "statistically_significant"
	ReasonStatisticallyInsignificant Reason = "statistically_insignificant"
	ReasonNullOutsideInterval        Reason = "null_outside_interval"
	ReasonNullInsideInterval         Reason = "null_inside_interval"
)

// Verdict is the single decision a test instance produces.
type Verdict struct {
	Decision Decision `json:"decision"`
	Method   Method   `json:"method"`
	Reason   Reason   `json:"reason"`
	Alpha    float64  `json:"alpha"`
	PValue   *float64 `json:"p_value,omitempty"`
	Lower    *float64 `json:"lower,omitempty"`
	Upper    *float64 `json:"upper,omitempty"`
}

// Rejected reports whether the null hypothesis was rejected.
func (v Verdict) Rejected() bool {
	return v.Decision == Reject
}

// NullDistributionSummary provides key statistics about an empirical distribution
type NullDistributionSummary struct {
	N            int     `json:"n"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile5  float64 `json:"percentile_5"`
	Percentile95 float64 `json:"percentile_95"`
	Percentile99 float64 `json:"percentile_99"`
}
