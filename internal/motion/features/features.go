// Package features computes the motion statistics of a completed trace.
//
// Every function here is pure: the same trace always produces the same
// FeatureSet, and degenerate input yields zero-valued features rather than
// errors.
package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Sample is one accepted pointer position. DT and Elapsed are milliseconds.
type Sample struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	DT      float64 `json:"dt"`
	Elapsed float64 `json:"elapsed"`
}

// Trace is the ordered samples of a single attempt.
type Trace []Sample

// Params holds the extraction constants. These are empirically chosen
// defaults, not protocol constants.
type Params struct {
	Window              int     // samples spanned by one velocity window
	JitterPixels        float64 // per-axis movement below this is jitter
	MinVectorMagnitude  float64 // shorter movement vectors have no usable direction
	DirectionSimilarity float64 // cosine similarity below this counts as a turn
	IdlePauseMs         float64 // dt above this counts as an idle pause
}

// DefaultParams returns the standard extraction constants.
func DefaultParams() Params {
	return Params{
		Window:              6,
		JitterPixels:        3,
		MinVectorMagnitude:  0.4,
		DirectionSimilarity: 0.93,
		IdlePauseMs:         50,
	}
}

// FeatureSet captures the statistics the classifier consumes.
type FeatureSet struct {
	MeanVelocity   float64 `json:"mean_velocity"`
	Variance       float64 `json:"variance"`
	VelocityStd    float64 `json:"velocity_std"`
	VelocityCV     float64 `json:"velocity_cv"`
	JitterRatio    float64 `json:"jitter_ratio"`
	DirectionNoise float64 `json:"direction_noise"`
	IdlePauses     int     `json:"idle_pauses"`
	SampleCount    int     `json:"sample_count"`
}

// Extract computes the full feature set for a trace.
func Extract(trace Trace, p Params) FeatureSet {
	f := FeatureSet{SampleCount: len(trace)}

	f.MeanVelocity, f.Variance = WindowedVelocity(trace, p.Window)
	f.VelocityStd = math.Sqrt(math.Max(f.Variance, 0))
	if f.MeanVelocity > 0 {
		f.VelocityCV = f.VelocityStd / f.MeanVelocity
	}
	f.JitterRatio = JitterRatio(trace, p.JitterPixels)
	f.DirectionNoise = DirectionNoise(trace, p.MinVectorMagnitude, p.DirectionSimilarity)
	f.IdlePauses = IdlePauses(trace, p.IdlePauseMs)
	return f
}

// WindowedVelocity returns the mean and population variance of velocities
// measured between samples i and i-window. Windowing over raw deltas smooths
// out coarse timer resolution that would otherwise zero the variance.
func WindowedVelocity(trace Trace, window int) (mean, variance float64) {
	if window < 1 || len(trace) <= window {
		return 0, 0
	}

	velocities := make([]float64, 0, len(trace)-window)
	for i := window; i < len(trace); i++ {
		cur, prev := trace[i], trace[i-window]
		dt := cur.Elapsed - prev.Elapsed
		if cur.Elapsed == 0 && prev.Elapsed == 0 {
			dt = 0
			for j := i - window + 1; j <= i; j++ {
				dt += trace[j].DT
			}
		}
		if dt <= 0 {
			continue
		}
		velocities = append(velocities, math.Hypot(cur.X-prev.X, cur.Y-prev.Y)/dt)
	}

	if len(velocities) == 0 {
		return 0, 0
	}
	return stat.PopMeanVariance(velocities, nil)
}

// JitterRatio is the fraction of consecutive pairs that moved less than
// threshold pixels on both axes.
func JitterRatio(trace Trace, threshold float64) float64 {
	if len(trace) < 2 {
		return 0
	}
	count := 0
	for i := 1; i < len(trace); i++ {
		dx := math.Abs(trace[i].X - trace[i-1].X)
		dy := math.Abs(trace[i].Y - trace[i-1].Y)
		if dx < threshold && dy < threshold {
			count++
		}
	}
	return float64(count) / float64(max(1, len(trace)-1))
}

// DirectionNoise is the fraction of consecutive movement-vector pairs whose
// cosine similarity falls below similarity. Pairs where either vector is
// shorter than minMagnitude are skipped.
func DirectionNoise(trace Trace, minMagnitude, similarity float64) float64 {
	comparisons, noisy := 0, 0
	for i := 2; i < len(trace); i++ {
		px, py := trace[i-1].X-trace[i-2].X, trace[i-1].Y-trace[i-2].Y
		cx, cy := trace[i].X-trace[i-1].X, trace[i].Y-trace[i-1].Y
		pm, cm := math.Hypot(px, py), math.Hypot(cx, cy)
		if pm < minMagnitude || cm < minMagnitude {
			continue
		}
		comparisons++
		if (px*cx+py*cy)/(pm*cm) < similarity {
			noisy++
		}
	}
	if comparisons == 0 {
		return 0
	}
	return float64(noisy) / float64(comparisons)
}

// IdlePauses counts samples whose dt exceeds threshold milliseconds.
func IdlePauses(trace Trace, threshold float64) int {
	n := 0
	for _, s := range trace {
		if s.DT > threshold {
			n++
		}
	}
	return n
}

// FeatureNames returns the canonical feature names in export order.
func FeatureNames() []string {
	return []string{
		"mean_velocity",
		"variance",
		"velocity_std",
		"velocity_cv",
		"jitter_ratio",
		"direction_noise",
		"idle_pauses",
		"sample_count",
	}
}

// Vector flattens the feature set in FeatureNames order.
func (f FeatureSet) Vector() []float64 {
	return []float64{
		f.MeanVelocity,
		f.Variance,
		f.VelocityStd,
		f.VelocityCV,
		f.JitterRatio,
		f.DirectionNoise,
		float64(f.IdlePauses),
		float64(f.SampleCount),
	}
}
