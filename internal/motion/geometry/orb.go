package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Orb converts p to an orb point.
func (p Point) Orb() orb.Point { return orb.Point{p.X, p.Y} }

// LineString converts a polyline to an orb line string.
func LineString(points []Point) orb.LineString {
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = p.Orb()
	}
	return ls
}

// FromLineString converts an orb line string back to points.
func FromLineString(ls orb.LineString) []Point {
	out := make([]Point, len(ls))
	for i, p := range ls {
		out[i] = Point{X: p[0], Y: p[1]}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the polyline.
func Bounds(points []Point) orb.Bound {
	return LineString(points).Bound()
}

// Simplify reduces a polyline with Douglas-Peucker at the given tolerance.
// Endpoints are always kept. Tolerances <= 0 return a copy.
func Simplify(points []Point, tolerance float64) []Point {
	if tolerance <= 0 || len(points) < 3 {
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}
	ls := simplify.DouglasPeucker(tolerance).LineString(LineString(points))
	return FromLineString(ls)
}
