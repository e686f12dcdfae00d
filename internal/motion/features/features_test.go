package features

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineTrace returns n samples moving step pixels right per sample at a
// uniform dt.
func lineTrace(n int, step, dt float64) Trace {
	tr := make(Trace, n)
	elapsed := 0.0
	for i := range tr {
		elapsed += dt
		tr[i] = Sample{X: 100 + float64(i)*step, Y: 200, DT: dt, Elapsed: elapsed}
	}
	return tr
}

// wobblyTrace mixes sub-jitter steps, alternating vertical wobble and
// alternating 8/60ms sample spacing.
func wobblyTrace(n int) Trace {
	tr := make(Trace, n)
	x, y, elapsed := 100.0, 200.0, 0.0
	for i := range tr {
		dt := 8.0
		if i%2 == 1 {
			dt = 60
		}
		if i > 0 {
			if i%3 == 0 {
				x++
				y++
			} else {
				x += 6
				if i%2 == 0 {
					y += 2
				} else {
					y -= 2
				}
			}
		}
		elapsed += dt
		tr[i] = Sample{X: x, Y: y, DT: dt, Elapsed: elapsed}
	}
	return tr
}

func TestWindowedVelocity(t *testing.T) {
	t.Run("too short for a window", func(t *testing.T) {
		mean, variance := WindowedVelocity(lineTrace(6, 10, 10), 6)
		assert.Zero(t, mean)
		assert.Zero(t, variance)
	})

	t.Run("single window", func(t *testing.T) {
		mean, variance := WindowedVelocity(lineTrace(7, 10, 10), 6)
		assert.InDelta(t, 1.0, mean, 1e-12)
		assert.InDelta(t, 0.0, variance, 1e-12)
	})

	t.Run("two windows", func(t *testing.T) {
		tr := lineTrace(8, 10, 10)
		tr[7].X = 190 // 90 px from the origin of the trace
		mean, variance := WindowedVelocity(tr, 6)
		assert.InDelta(t, 7.0/6.0, mean, 1e-9)
		assert.InDelta(t, 1.0/36.0, variance, 1e-9)
	})

	t.Run("falls back to summed dt without elapsed", func(t *testing.T) {
		tr := lineTrace(8, 10, 10)
		tr[7].X = 190
		for i := range tr {
			tr[i].Elapsed = 0
		}
		mean, variance := WindowedVelocity(tr, 6)
		assert.InDelta(t, 7.0/6.0, mean, 1e-9)
		assert.InDelta(t, 1.0/36.0, variance, 1e-9)
	})

	t.Run("skips non-positive deltas", func(t *testing.T) {
		tr := lineTrace(10, 10, 10)
		for i := range tr {
			tr[i].Elapsed = 50
		}
		mean, variance := WindowedVelocity(tr, 6)
		assert.Zero(t, mean)
		assert.Zero(t, variance)
	})
}

func TestJitterRatio(t *testing.T) {
	assert.Zero(t, JitterRatio(nil, 3))
	assert.Zero(t, JitterRatio(lineTrace(1, 1, 10), 3))
	assert.Zero(t, JitterRatio(lineTrace(20, 5, 10), 3))
	assert.Equal(t, 1.0, JitterRatio(lineTrace(20, 2, 10), 3))

	tr := Trace{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 10, Y: 2}, {X: 11, Y: 5}}
	// pairs: (2,2) jitter, (8,0) no, (1,3) no: |dy| must be < 3
	assert.InDelta(t, 1.0/3.0, JitterRatio(tr, 3), 1e-12)
}

func TestDirectionNoise(t *testing.T) {
	turn := Trace{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10}}
	assert.InDelta(t, 0.5, DirectionNoise(turn, 0.4, 0.93), 1e-12)

	stationary := Trace{{X: 0, Y: 0}, {X: 0.1, Y: 0}, {X: 10, Y: 0}}
	assert.Zero(t, DirectionNoise(stationary, 0.4, 0.93))

	// A 15 degree turn stays above the similarity threshold, 25 degrees does not.
	gentle := Trace{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 19.659, Y: 2.588}}
	assert.Zero(t, DirectionNoise(gentle, 0.4, 0.93))
	sharp := Trace{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 19.063, Y: 4.226}}
	assert.Equal(t, 1.0, DirectionNoise(sharp, 0.4, 0.93))
}

func TestIdlePauses(t *testing.T) {
	tr := Trace{{DT: 8}, {DT: 50}, {DT: 50.1}, {DT: 120}, {DT: 10}}
	assert.Equal(t, 2, IdlePauses(tr, 50))
	assert.Zero(t, IdlePauses(nil, 50))
}

func TestExtract_StraightUniformLine(t *testing.T) {
	f := Extract(lineTrace(80, 5, 10), DefaultParams())

	assert.Equal(t, 80, f.SampleCount)
	assert.InDelta(t, 0.5, f.MeanVelocity, 1e-9)
	assert.InDelta(t, 0.0, f.Variance, 1e-12)
	assert.InDelta(t, 0.0, f.VelocityCV, 1e-6)
	assert.Zero(t, f.JitterRatio)
	assert.Zero(t, f.DirectionNoise)
	assert.Zero(t, f.IdlePauses)
}

func TestExtract_Wobbly(t *testing.T) {
	f := Extract(wobblyTrace(100), DefaultParams())

	assert.Equal(t, 100, f.SampleCount)
	assert.Equal(t, 50, f.IdlePauses)
	assert.InDelta(t, 33.0/99.0, f.JitterRatio, 1e-12)
	assert.Greater(t, f.DirectionNoise, 0.08)
	assert.Greater(t, f.MeanVelocity, 0.0)
}

func TestExtract_Degenerate(t *testing.T) {
	for _, tr := range []Trace{nil, {}, {{X: 1, Y: 1, DT: 0.1, Elapsed: 0.1}}} {
		f := Extract(tr, DefaultParams())
		assert.Equal(t, FeatureSet{SampleCount: len(tr)}, f)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	tr := wobblyTrace(120)
	a := Extract(tr, DefaultParams())
	b := Extract(tr, DefaultParams())
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Extract not deterministic (-first +second):\n%s", diff)
	}
}

func TestFeatureSet_Vector(t *testing.T) {
	f := FeatureSet{MeanVelocity: 1, Variance: 2, VelocityStd: 3, VelocityCV: 4, JitterRatio: 5, DirectionNoise: 6, IdlePauses: 7, SampleCount: 8}
	v := f.Vector()
	require.Len(t, v, len(FeatureNames()))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, v)
}
