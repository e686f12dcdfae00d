// Package path generates the randomized tracking path a subject follows.
//
// A path is a left-to-right polyline: x advances by a constant step per
// segment and y takes a bounded random walk clamped inside the vertical
// padding, so the track squiggles without ever doubling back.
package path

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/paulmach/orb"
)

// ErrInvalidBounds is returned when the surface cannot hold a path.
var ErrInvalidBounds = errors.New("invalid path bounds")

// Config controls path generation. A zero Config takes DefaultConfig
// values; otherwise every field is used as given, so zero jitter or
// padding is honoured.
type Config struct {
	Segments    int     // number of polyline segments (points = Segments+1)
	PaddingX    float64 // horizontal margin on both sides
	PaddingY    float64 // vertical margin on top and bottom
	StartJitter float64 // start y is height/2 ± StartJitter
	StepJitter  float64 // per-step y change is ± StepJitter
	StrokeWidth float64 // rendered path width, carried for the renderer
}

// DefaultConfig returns the standard generation parameters.
func DefaultConfig() Config {
	return Config{
		Segments:    12,
		PaddingX:    60,
		PaddingY:    40,
		StartJitter: 30,
		StepJitter:  90,
		StrokeWidth: 34,
	}
}

func (c Config) withDefaults() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}
	return c
}

// Path is one generated track plus the surface it was generated for.
type Path struct {
	Points        []geometry.Point `json:"points"`
	Width         float64          `json:"path_width"`
	SurfaceWidth  float64          `json:"surface_width"`
	SurfaceHeight float64          `json:"surface_height"`
}

// Start returns the start anchor (first point).
func (p Path) Start() geometry.Point { return p.Points[0] }

// End returns the end anchor (last point).
func (p Path) End() geometry.Point { return p.Points[len(p.Points)-1] }

// Bounds returns the bounding box of the polyline.
func (p Path) Bounds() orb.Bound { return geometry.Bounds(p.Points) }

// Generator produces paths from an injected random source.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng uses a randomly seeded PCG.
func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{cfg: cfg.withDefaults(), rng: rng}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

// Generate builds a new path for a width×height surface.
func (g *Generator) Generate(width, height float64) (Path, error) {
	cfg := g.cfg
	switch {
	case width <= 0 || height <= 0:
		return Path{}, fmt.Errorf("%w: surface %gx%g must be positive", ErrInvalidBounds, width, height)
	case cfg.Segments < 1:
		return Path{}, fmt.Errorf("%w: segments must be >= 1, got %d", ErrInvalidBounds, cfg.Segments)
	case width <= 2*cfg.PaddingX:
		return Path{}, fmt.Errorf("%w: width %g does not fit horizontal padding %g", ErrInvalidBounds, width, cfg.PaddingX)
	case height <= 2*cfg.PaddingY:
		return Path{}, fmt.Errorf("%w: height %g does not fit vertical padding %g", ErrInvalidBounds, height, cfg.PaddingY)
	}

	minY, maxY := cfg.PaddingY, height-cfg.PaddingY
	step := (width - 2*cfg.PaddingX) / float64(cfg.Segments)

	x := cfg.PaddingX
	y := geometry.Clamp(height/2+g.uniform(cfg.StartJitter), minY, maxY)

	points := make([]geometry.Point, 0, cfg.Segments+1)
	points = append(points, geometry.Point{X: x, Y: y})
	for i := 0; i < cfg.Segments; i++ {
		x += step
		y = geometry.Clamp(y+g.uniform(cfg.StepJitter), minY, maxY)
		points = append(points, geometry.Point{X: x, Y: y})
	}

	return Path{
		Points:        points,
		Width:         cfg.StrokeWidth,
		SurfaceWidth:  width,
		SurfaceHeight: height,
	}, nil
}

// uniform returns a value in [-span, span).
func (g *Generator) uniform(span float64) float64 {
	return (g.rng.Float64()*2 - 1) * span
}
