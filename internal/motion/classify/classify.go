// Package classify turns extracted motion features into a pass/fail verdict.
package classify

import (
	"github.com/banshee-data/motion.check/internal/motion/features"
)

// ModelVersion identifies the rule set that produced a verdict.
const ModelVersion = "rule-based-v1.0"

// Requirement names, as reported by Verdict.FailedRequirements.
const (
	RequirementChaos   = "chaos"
	RequirementJitter  = "jitter"
	RequirementPauses  = "pauses"
	RequirementSamples = "samples"
)

// Thresholds are the tunable classification rules. The three chaos
// thresholds are alternatives: exceeding any one of them is enough.
type Thresholds struct {
	Variance       float64 // velocity variance must exceed this
	CV             float64 // velocity coefficient of variation must exceed this
	DirectionNoise float64 // direction-noise ratio must exceed this
	JitterRatio    float64 // jitter ratio must exceed this
	MinIdlePauses  int     // at least this many idle pauses
	MinSamples     int     // sample count must exceed this
}

// DefaultThresholds returns the standard rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Variance:       0.01,
		CV:             0.25,
		DirectionNoise: 0.08,
		JitterRatio:    0.10,
		MinIdlePauses:  2,
		MinSamples:     70,
	}
}

// Requirements records the outcome of every rule.
type Requirements struct {
	PassVariance  bool `json:"pass_variance"`
	PassCV        bool `json:"pass_cv"`
	PassDirection bool `json:"pass_direction"`
	PassChaos     bool `json:"pass_chaos"`
	PassJitter    bool `json:"pass_jitter"`
	PassPauses    bool `json:"pass_pauses"`
	PassSamples   bool `json:"pass_samples"`
}

// Verdict is the immutable result of classifying one trace.
type Verdict struct {
	Pass         bool                `json:"pass"`
	Features     features.FeatureSet `json:"features"`
	Requirements Requirements        `json:"requirements"`
	Model        string              `json:"model"`
}

// FailedRequirements lists the top-level rules that did not pass.
func (v Verdict) FailedRequirements() []string {
	var failed []string
	if !v.Requirements.PassChaos {
		failed = append(failed, RequirementChaos)
	}
	if !v.Requirements.PassJitter {
		failed = append(failed, RequirementJitter)
	}
	if !v.Requirements.PassPauses {
		failed = append(failed, RequirementPauses)
	}
	if !v.Requirements.PassSamples {
		failed = append(failed, RequirementSamples)
	}
	return failed
}

// Classifier applies a fixed set of thresholds.
type Classifier struct {
	Thresholds   Thresholds
	ModelVersion string
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{Thresholds: th, ModelVersion: ModelVersion}
}

// Classify evaluates every rule against f. All flags are populated, not
// just the final result.
func (c *Classifier) Classify(f features.FeatureSet) Verdict {
	th := c.Thresholds
	r := Requirements{
		PassVariance:  f.Variance > th.Variance,
		PassCV:        f.VelocityCV > th.CV,
		PassDirection: f.DirectionNoise > th.DirectionNoise,
		PassJitter:    f.JitterRatio > th.JitterRatio,
		PassPauses:    f.IdlePauses >= th.MinIdlePauses,
		PassSamples:   f.SampleCount > th.MinSamples,
	}
	r.PassChaos = r.PassVariance || r.PassCV || r.PassDirection

	return Verdict{
		Pass:         r.PassChaos && r.PassJitter && r.PassPauses && r.PassSamples,
		Features:     f,
		Requirements: r,
		Model:        c.ModelVersion,
	}
}
