package geometry

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointInCircle(t *testing.T) {
	center := Point{X: 10, Y: 10}

	tests := []struct {
		name   string
		p      Point
		radius float64
		want   bool
	}{
		{"centre", Point{10, 10}, 5, true},
		{"inside", Point{12, 13}, 5, true},
		{"on boundary", Point{15, 10}, 5, true},
		{"just outside", Point{15.01, 10}, 5, false},
		{"zero radius at centre", Point{10, 10}, 0, true},
		{"zero radius elsewhere", Point{10, 10.1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInCircle(tt.p, center, tt.radius))
		})
	}
}

func TestDistanceToSegment(t *testing.T) {
	a := Point{0, 0}
	b := Point{10, 0}

	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{"perpendicular above middle", Point{5, 3}, 3},
		{"on segment", Point{7, 0}, 0},
		{"beyond b uses endpoint", Point{13, 4}, 5},
		{"before a uses endpoint", Point{-3, -4}, 5},
		{"at a", Point{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceToSegment(tt.p, a, b), 1e-12)
		})
	}
}

func TestDistanceToSegment_Degenerate(t *testing.T) {
	a := Point{3, 4}
	p := Point{0, 0}
	assert.Equal(t, Distance(p, a), DistanceToSegment(p, a, a))
	assert.InDelta(t, 5.0, DistanceToSegment(p, a, a), 1e-12)
}

func TestDistanceToSegment_NeverExceedsEndpoints(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 2000; i++ {
		a := Point{rng.Float64()*200 - 100, rng.Float64()*200 - 100}
		b := Point{rng.Float64()*200 - 100, rng.Float64()*200 - 100}
		p := Point{rng.Float64()*200 - 100, rng.Float64()*200 - 100}

		d := DistanceToSegment(p, a, b)
		require.LessOrEqual(t, d, Distance(p, a)+1e-9)
		require.LessOrEqual(t, d, Distance(p, b)+1e-9)
		require.GreaterOrEqual(t, d, 0.0)
	}
}

func TestDistanceToPolyline(t *testing.T) {
	poly := []Point{{0, 0}, {10, 0}, {10, 10}}

	assert.InDelta(t, 2.0, DistanceToPolyline(Point{5, 2}, poly), 1e-12)
	assert.InDelta(t, 1.0, DistanceToPolyline(Point{11, 5}, poly), 1e-12)
	assert.InDelta(t, 0.0, DistanceToPolyline(Point{10, 10}, poly), 1e-12)

	assert.True(t, math.IsInf(DistanceToPolyline(Point{1, 1}, nil), 1))
	assert.InDelta(t, 5.0, DistanceToPolyline(Point{3, 4}, []Point{{0, 0}}), 1e-12)
}

func TestDistanceToPolyline_MatchesPlanar(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	poly := make([]Point, 13)
	for i := range poly {
		poly[i] = Point{X: float64(i) * 40, Y: rng.Float64() * 300}
	}
	ls := LineString(poly)

	for i := 0; i < 500; i++ {
		p := Point{rng.Float64() * 520, rng.Float64() * 300}
		want := planar.DistanceFrom(ls, p.Orb())
		assert.InDelta(t, want, DistanceToPolyline(p, poly), 1e-9)
	}
}

func TestBoundsAndSimplify(t *testing.T) {
	poly := []Point{{0, 5}, {1, 5.01}, {2, 4.99}, {3, 5}, {10, 20}}

	b := Bounds(poly)
	assert.Equal(t, 0.0, b.Min[0])
	assert.Equal(t, 4.99, b.Min[1])
	assert.Equal(t, 10.0, b.Max[0])
	assert.Equal(t, 20.0, b.Max[1])

	s := Simplify(poly, 0.5)
	require.GreaterOrEqual(t, len(s), 2)
	assert.Less(t, len(s), len(poly))
	assert.Equal(t, poly[0], s[0])
	assert.Equal(t, poly[len(poly)-1], s[len(s)-1])

	assert.Equal(t, poly, Simplify(poly, 0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(5, 0, 1))
	assert.Equal(t, 0.0, Clamp(-5, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}
