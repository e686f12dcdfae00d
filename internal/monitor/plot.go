// Package monitor renders diagnostic views of attempts and verdicts for the
// debug surface. Nothing here is reachable from the public API.
package monitor

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/banshee-data/motion.check/internal/motion/session"
)

var (
	pathColor  = color.RGBA{R: 158, G: 158, B: 158, A: 255}
	startColor = color.RGBA{R: 53, G: 183, B: 121, A: 255}
	endColor   = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	trailColor = color.RGBA{R: 255, G: 82, B: 82, A: 255}
)

// Anchors gives the radii drawn around the path ends.
type Anchors struct {
	StartRadius float64
	EndRadius   float64
}

// TracePlot draws the path centre line, both anchors and a trail in surface
// coordinates, with y pointing up. The trail is the live one when the attempt
// is tracing, otherwise the last finished one.
func TracePlot(snap session.Snapshot, a Anchors) (*plot.Plot, error) {
	if len(snap.Path.Points) < 2 {
		return nil, fmt.Errorf("attempt %s has no path", snap.ID)
	}
	h := snap.Path.SurfaceHeight
	flip := func(pts []geometry.Point) plotter.XYs {
		xys := make(plotter.XYs, len(pts))
		for i, p := range pts {
			xys[i].X = p.X
			xys[i].Y = h - p.Y
		}
		return xys
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Attempt %s (%s)", snap.ID, snap.Outcome)
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.X.Min, p.X.Max = 0, snap.Path.SurfaceWidth
	p.Y.Min, p.Y.Max = 0, h
	p.Add(plotter.NewGrid())

	centre, err := plotter.NewLine(flip(snap.Path.Points))
	if err != nil {
		return nil, fmt.Errorf("failed to create path line: %w", err)
	}
	centre.Color = pathColor
	centre.Width = vg.Points(2)
	centre.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(centre)
	p.Legend.Add("path", centre)

	for _, anchor := range []struct {
		name   string
		at     geometry.Point
		radius float64
		c      color.Color
	}{
		{"start", snap.Path.Start(), a.StartRadius, startColor},
		{"end", snap.Path.End(), a.EndRadius, endColor},
	} {
		ring, err := plotter.NewLine(flip(circle(anchor.at, anchor.radius, 48)))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s anchor: %w", anchor.name, err)
		}
		ring.Color = anchor.c
		ring.Width = vg.Points(1.5)
		p.Add(ring)
		p.Legend.Add(anchor.name, ring)
	}

	trail := snap.Trail
	label := "trail"
	if len(trail) == 0 {
		trail = snap.LastTrail
		label = "last trail"
	}
	if len(trail) >= 2 {
		line, err := plotter.NewLine(flip(trail))
		if err != nil {
			return nil, fmt.Errorf("failed to create trail line: %w", err)
		}
		line.Color = trailColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (%d)", label, len(trail)), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteTracePNG renders TracePlot as a PNG sized to the surface aspect ratio.
func WriteTracePNG(w io.Writer, snap session.Snapshot, a Anchors) error {
	p, err := TracePlot(snap, a)
	if err != nil {
		return err
	}
	width := 8 * vg.Inch
	height := width
	if sw := snap.Path.SurfaceWidth; sw > 0 {
		height = vg.Length(float64(width) * snap.Path.SurfaceHeight / sw)
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

func circle(c geometry.Point, r float64, n int) []geometry.Point {
	pts := make([]geometry.Point, n+1)
	for i := 0; i <= n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geometry.Point{X: c.X + r*math.Cos(theta), Y: c.Y + r*math.Sin(theta)}
	}
	return pts
}
