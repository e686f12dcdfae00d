// Package sim synthesises pointer motion along a tracking path.
//
// Human produces the irregular motion a person makes while tracing: smooth
// Perlin drift across the stroke, sub-pixel tremor, bursts of slow creeping
// and the occasional hesitation. Scripted produces what naive automation
// does: exact, evenly spaced points at a fixed rate. Both are used by tests
// and by the trace-sim tool to calibrate thresholds.
package sim

import (
	"math"
	"math/rand/v2"

	"github.com/aquilax/go-perlin"

	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/banshee-data/motion.check/internal/motion/path"
)

// Move is one synthetic pointer event at a monotonic reading in milliseconds.
type Move struct {
	P  geometry.Point
	At float64
}

// HumanOptions tunes Human. Zero fields take DefaultHumanOptions values.
type HumanOptions struct {
	Samples      int     // events including the start anchor entry
	Seed         int64   // seeds both the noise fields and the tremor
	Drift        float64 // max perpendicular drift from the centre line, px
	Tremor       float64 // per-sample uniform tremor, ± px
	BaseDT       float64 // nominal sample spacing, ms
	PauseDT      float64 // spacing of a hesitation sample, ms
	PauseChance  float64 // chance of a hesitation on any sample
	SlowFraction float64 // speed multiplier during slow phases
}

// DefaultHumanOptions returns options tuned to stay well inside a 34px stroke.
func DefaultHumanOptions() HumanOptions {
	return HumanOptions{
		Samples:      120,
		Seed:         1,
		Drift:        5,
		Tremor:       0.8,
		BaseDT:       16,
		PauseDT:      80,
		PauseChance:  0.04,
		SlowFraction: 0.05,
	}
}

func (o HumanOptions) withDefaults() HumanOptions {
	d := DefaultHumanOptions()
	if o.Samples == 0 {
		o.Samples = d.Samples
	}
	if o.Drift == 0 {
		o.Drift = d.Drift
	}
	if o.Tremor == 0 {
		o.Tremor = d.Tremor
	}
	if o.BaseDT == 0 {
		o.BaseDT = d.BaseDT
	}
	if o.PauseDT == 0 {
		o.PauseDT = d.PauseDT
	}
	if o.PauseChance == 0 {
		o.PauseChance = d.PauseChance
	}
	if o.SlowFraction == 0 {
		o.SlowFraction = d.SlowFraction
	}
	return o
}

// Human returns a human-like sequence of moves from the start anchor to the
// end anchor of p.
func Human(p path.Path, opt HumanOptions) []Move {
	opt = opt.withDefaults()
	n := max(opt.Samples, 3)
	rng := rand.New(rand.NewPCG(uint64(opt.Seed), 0x9e3779b97f4a7c15))
	drift := perlin.NewPerlin(2, 2, 3, opt.Seed)
	speed := perlin.NewPerlin(2, 2, 3, opt.Seed+1)

	// Forced hesitations guarantee a few pauses regardless of chance.
	forced := map[int]bool{n / 4: true, n / 2: true, 3 * n / 4: true}

	weights := make([]float64, n)
	paused := make([]bool, n)
	total := 0.0
	for i := 1; i < n; i++ {
		paused[i] = forced[i] || rng.Float64() < opt.PauseChance
		switch {
		case paused[i]:
			weights[i] = 0
		case (i/15)%3 == 1:
			weights[i] = opt.SlowFraction
		default:
			weights[i] = math.Max(0.2, 1+0.8*clampUnit(speed.Noise1D(float64(i)*0.07)))
		}
		total += weights[i]
	}

	length := polylineLength(p.Points)
	moves := make([]Move, n)
	moves[0] = Move{P: p.Start()}

	s, at := 0.0, 0.0
	for i := 1; i < n; i++ {
		s += length * weights[i] / total
		dt := opt.BaseDT * (0.6 + 0.8*rng.Float64())
		if paused[i] {
			dt = opt.PauseDT * (1 + rng.Float64())
		}
		at += dt

		if i == n-1 {
			moves[i] = Move{P: p.End(), At: at}
			continue
		}
		centre, normal := pointAt(p.Points, s)
		offset := opt.Drift * clampUnit(drift.Noise1D(float64(i)*0.05))
		moves[i] = Move{
			P: geometry.Point{
				X: centre.X + normal.X*offset + (rng.Float64()*2-1)*opt.Tremor,
				Y: centre.Y + normal.Y*offset + (rng.Float64()*2-1)*opt.Tremor,
			},
			At: at,
		}
	}
	return moves
}

// Scripted returns n moves evenly spaced along p, dt milliseconds apart,
// exactly on the centre line.
func Scripted(p path.Path, n int, dt float64) []Move {
	n = max(n, 2)
	length := polylineLength(p.Points)
	moves := make([]Move, n)
	for i := range moves {
		s := length * float64(i) / float64(n-1)
		centre, _ := pointAt(p.Points, s)
		moves[i] = Move{P: centre, At: float64(i) * dt}
	}
	moves[n-1].P = p.End()
	return moves
}

func polylineLength(points []geometry.Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += geometry.Distance(points[i-1], points[i])
	}
	return total
}

// pointAt returns the point at arc length s along the polyline and the unit
// normal of the segment containing it.
func pointAt(points []geometry.Point, s float64) (geometry.Point, geometry.Point) {
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		seg := geometry.Distance(a, b)
		if seg == 0 {
			continue
		}
		if s <= seg || i == len(points)-1 {
			t := geometry.Clamp(s/seg, 0, 1)
			ux, uy := (b.X-a.X)/seg, (b.Y-a.Y)/seg
			return geometry.Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}, geometry.Point{X: -uy, Y: ux}
		}
		s -= seg
	}
	return points[len(points)-1], geometry.Point{}
}

func clampUnit(v float64) float64 { return geometry.Clamp(v, -1, 1) }
