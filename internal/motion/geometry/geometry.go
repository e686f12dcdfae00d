// Package geometry implements the containment tests used while recording
// a trace: point-in-circle for the start and end anchors, and nearest
// distance to the tracking polyline for edge collisions.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a coordinate on the tracking surface, in surface pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec converts p to a gonum vector.
func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// FromVec converts a gonum vector back to a Point.
func FromVec(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return r2.Norm(r2.Sub(p.Vec(), q.Vec()))
}

// PointInCircle reports whether p lies inside or on the circle.
// Comparison is done on squared distances.
func PointInCircle(p, center Point, radius float64) bool {
	return r2.Norm2(r2.Sub(p.Vec(), center.Vec())) <= radius*radius
}

// DistanceToSegment returns the distance from p to the closed segment [a, b].
// A degenerate segment (a == b) falls back to the point distance.
func DistanceToSegment(p, a, b Point) float64 {
	ab := r2.Sub(b.Vec(), a.Vec())
	lenSq := r2.Norm2(ab)
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := r2.Dot(r2.Sub(p.Vec(), a.Vec()), ab) / lenSq
	t = Clamp(t, 0, 1)
	nearest := r2.Add(a.Vec(), r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p.Vec(), nearest))
}

// DistanceToPolyline returns the minimum distance from p to any segment of
// the polyline. A single point degrades to the point distance and an empty
// polyline is infinitely far away.
func DistanceToPolyline(p Point, points []Point) float64 {
	switch len(points) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, points[0])
	}

	best := math.Inf(1)
	for i := 1; i < len(points); i++ {
		if d := DistanceToSegment(p, points[i-1], points[i]); d < best {
			best = d
		}
	}
	return best
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
