// Package recorder implements the per-attempt trace recording state machine.
//
// A Recorder owns every piece of mutable attempt state: the trace, the
// recording flag, the elapsed time and the last clock reading. It is not
// safe for concurrent use; feed it from a single goroutine (see the session
// package) and process each event to completion before the next.
package recorder

import (
	"errors"
	"fmt"

	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/features"
	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/banshee-data/motion.check/internal/motion/path"
	"github.com/banshee-data/motion.check/internal/timeutil"
)

// State is the recorder lifecycle state.
type State string

const (
	StateIdle      State = "idle"      // waiting for the pointer to enter the start anchor
	StateRecording State = "recording" // accepting samples
	StateCompleted State = "completed" // reached the end anchor, verdict emitted
	StateFailed    State = "failed"    // attempt discarded
)

// FailureReason explains why an attempt was discarded.
type FailureReason string

const (
	ReasonNone          FailureReason = ""
	ReasonEdgeCollision FailureReason = "edge_collision"
	ReasonLeftSurface   FailureReason = "left_surface"
	ReasonTooShort      FailureReason = "trace_too_short"
)

// Tone classifies a status message for the renderer.
type Tone string

const (
	ToneReady     Tone = "ready"
	ToneRecording Tone = "recording"
	TonePass      Tone = "pass"
	ToneFail      Tone = "fail"
)

// Status is emitted on every state transition.
type Status struct {
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// ErrInvalidPath is returned by SetPath for paths with fewer than two points.
var ErrInvalidPath = errors.New("path needs at least two points")

// Config holds the recorder geometry and timing constants.
type Config struct {
	StartRadius    float64 // start anchor radius
	EndRadius      float64 // end anchor rendered radius
	EndMargin      float64 // shrinks the end target inside its glow
	PathWidth      float64 // used when the installed path has no width
	CollisionSlack float64 // fraction of path width tolerated off-centre
	DTFloor        float64 // smallest dt recorded, in milliseconds
	MinSamples     int     // shorter completed traces fail as too short

	Features   features.Params
	Thresholds classify.Thresholds
}

// DefaultConfig returns the standard recorder configuration.
func DefaultConfig() Config {
	return Config{
		StartRadius:    18,
		EndRadius:      18,
		EndMargin:      4,
		PathWidth:      34,
		CollisionSlack: 0.52,
		DTFloor:        0.1,
		MinSamples:     12,
		Features:       features.DefaultParams(),
		Thresholds:     classify.DefaultThresholds(),
	}
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithClock sets the clock read by MoveNow.
func WithClock(c timeutil.Clock) Option {
	return func(r *Recorder) { r.clock = timeutil.NewMonotonic(c) }
}

// OnStatus registers the status signal callback.
func OnStatus(f func(Status)) Option {
	return func(r *Recorder) { r.onStatus = f }
}

// OnVerdict registers the verdict callback.
func OnVerdict(f func(classify.Verdict)) Option {
	return func(r *Recorder) { r.onVerdict = f }
}

// Recorder is the trace recording state machine for one subject.
type Recorder struct {
	cfg        Config
	classifier *classify.Classifier
	clock      *timeutil.Monotonic

	path    path.Path
	hasPath bool

	state    State
	trace    features.Trace
	elapsed  float64
	lastTime float64

	status    Status
	outcome   State
	failure   FailureReason
	verdict   *classify.Verdict
	lastTrail []geometry.Point
	attempts  int

	onStatus  func(Status)
	onVerdict func(classify.Verdict)
}

// New creates an idle recorder with no path installed.
func New(cfg Config, opts ...Option) *Recorder {
	r := &Recorder{
		cfg:        cfg,
		classifier: classify.NewClassifier(cfg.Thresholds),
		state:      StateIdle,
		status:     Status{Text: "Waiting for a path", Tone: ToneReady},
	}
	for _, o := range opts {
		o(r)
	}
	if r.clock == nil {
		r.clock = timeutil.NewMonotonic(timeutil.RealClock{})
	}
	return r
}

// SetPath installs new geometry. Any live attempt is discarded first so
// stale samples are never evaluated against the replacement path.
func (r *Recorder) SetPath(p path.Path) error {
	if len(p.Points) < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidPath, len(p.Points))
	}
	r.clear()
	r.lastTrail = nil
	r.path = p
	r.hasPath = true
	r.emit(Status{Text: "Hover the start point to begin", Tone: ToneReady})
	return nil
}

// Reset abandons the current attempt without a pass/fail signal.
func (r *Recorder) Reset() {
	r.clear()
	r.failure = ReasonNone
	r.outcome = ""
	r.lastTrail = nil
	if r.hasPath {
		r.emit(Status{Text: "Hover the start point to begin", Tone: ToneReady})
	}
}

// MoveNow feeds a pointer position timestamped with the recorder's clock.
func (r *Recorder) MoveNow(p geometry.Point) {
	r.Move(p, r.clock.ReadMillis())
}

// Move feeds a pointer position observed at monotonic reading now
// (milliseconds).
func (r *Recorder) Move(p geometry.Point, now float64) {
	if !r.hasPath {
		return
	}
	if r.state != StateRecording {
		if geometry.PointInCircle(p, r.path.Start(), r.cfg.StartRadius) {
			r.begin(now)
		}
		return
	}

	dt := now - r.lastTime
	if dt < r.cfg.DTFloor {
		dt = r.cfg.DTFloor
	}
	if now > r.lastTime {
		r.lastTime = now
	}

	// Collision takes precedence over reaching the end anchor.
	if geometry.DistanceToPolyline(p, r.path.Points) > r.pathWidth()*r.cfg.CollisionSlack {
		r.fail(ReasonEdgeCollision)
		return
	}

	r.elapsed += dt
	r.trace = append(r.trace, features.Sample{X: p.X, Y: p.Y, DT: dt, Elapsed: r.elapsed})

	if geometry.PointInCircle(p, r.path.End(), r.cfg.EndRadius-r.cfg.EndMargin) {
		r.complete()
	}
}

// Leave signals that the pointer left the tracking surface.
func (r *Recorder) Leave() {
	if r.state == StateRecording {
		r.fail(ReasonLeftSurface)
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State { return r.state }

// Status returns the most recently emitted status.
func (r *Recorder) Status() Status { return r.status }

// Path returns the installed path and whether one is installed.
func (r *Recorder) Path() (path.Path, bool) { return r.path, r.hasPath }

// PathWidth returns the stroke width used for collision checks.
func (r *Recorder) PathWidth() float64 { return r.pathWidth() }

// Verdict returns the verdict of the most recent completed attempt, or nil
// when no attempt has completed yet.
func (r *Recorder) Verdict() *classify.Verdict {
	if r.verdict == nil {
		return nil
	}
	v := *r.verdict
	return &v
}

// Outcome returns the terminal state of the most recent attempt
// (StateCompleted or StateFailed), or StateIdle when none has finished.
func (r *Recorder) Outcome() State {
	if r.outcome == "" {
		return StateIdle
	}
	return r.outcome
}

// LastFailure returns the reason the most recent attempt failed, if it did.
func (r *Recorder) LastFailure() FailureReason { return r.failure }

// Attempts returns the number of attempts started.
func (r *Recorder) Attempts() int { return r.attempts }

// SampleCount returns the number of samples in the live trace.
func (r *Recorder) SampleCount() int { return len(r.trace) }

// LastTrail returns the accepted positions of the most recently finished
// attempt, completed or failed. It is kept for diagnostics only and is
// dropped when the path changes or the recorder is reset.
func (r *Recorder) LastTrail() []geometry.Point {
	return append([]geometry.Point(nil), r.lastTrail...)
}

// Trail returns a copy of the accepted positions of the live trace.
func (r *Recorder) Trail() []geometry.Point {
	out := make([]geometry.Point, len(r.trace))
	for i, s := range r.trace {
		out[i] = geometry.Point{X: s.X, Y: s.Y}
	}
	return out
}

func (r *Recorder) pathWidth() float64 {
	if r.path.Width > 0 {
		return r.path.Width
	}
	return r.cfg.PathWidth
}

func (r *Recorder) begin(now float64) {
	r.trace = make(features.Trace, 0, 128)
	r.elapsed = 0
	r.lastTime = now
	r.failure = ReasonNone
	r.attempts++
	r.state = StateRecording
	r.emit(Status{Text: "Recording: follow the path to the end", Tone: ToneRecording})
}

func (r *Recorder) fail(reason FailureReason) {
	r.lastTrail = r.Trail()
	r.failure = reason
	r.outcome = StateFailed
	r.state = StateFailed
	r.emit(Status{Text: failureText(reason), Tone: ToneFail})
	r.clear()
}

func (r *Recorder) complete() {
	if len(r.trace) < r.cfg.MinSamples {
		r.fail(ReasonTooShort)
		return
	}

	frozen := make(features.Trace, len(r.trace))
	copy(frozen, r.trace)
	r.lastTrail = r.Trail()
	v := r.classifier.Classify(features.Extract(frozen, r.cfg.Features))
	r.verdict = &v
	r.outcome = StateCompleted
	r.state = StateCompleted

	if v.Pass {
		r.emit(Status{Text: "Passed: motion looks human", Tone: TonePass})
	} else {
		r.emit(Status{Text: "Failed: motion looks automated", Tone: ToneFail})
	}
	if r.onVerdict != nil {
		r.onVerdict(v)
	}
	r.clear()
}

// clear discards the live trace and returns to idle.
func (r *Recorder) clear() {
	r.trace = nil
	r.elapsed = 0
	r.lastTime = 0
	r.state = StateIdle
}

func (r *Recorder) emit(s Status) {
	r.status = s
	if r.onStatus != nil {
		r.onStatus(s)
	}
}

func failureText(reason FailureReason) string {
	switch reason {
	case ReasonEdgeCollision:
		return "Failed: touched the edge of the path"
	case ReasonLeftSurface:
		return "Failed: cursor left the surface"
	case ReasonTooShort:
		return "Failed: trace too short"
	default:
		return "Failed"
	}
}
