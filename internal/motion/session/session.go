// Package session runs one recorder per attempt on its own goroutine.
//
// Pointer events for an attempt are delivered over a channel and processed
// run-to-completion in arrival order, so the recorder never sees two events
// at once. Dispatch hands a batch to the loop and waits for the resulting
// Snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/motion.check/internal/monitoring"
	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/banshee-data/motion.check/internal/motion/path"
	"github.com/banshee-data/motion.check/internal/motion/recorder"
	"github.com/banshee-data/motion.check/internal/timeutil"
)

var (
	// ErrClosed is returned when dispatching to a stopped session.
	ErrClosed = errors.New("session closed")
	// ErrUnknownEvent is returned for events with an unrecognised type.
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrMixedTimestamps is returned when moves with and without a client
	// timestamp reach the same session.
	ErrMixedTimestamps = errors.New("mixed move timestamp sources")
)

// EventType names the operations a session accepts.
type EventType string

const (
	EventMove       EventType = "move"       // pointer position
	EventLeave      EventType = "leave"      // pointer left the tracking surface
	EventReset      EventType = "reset"      // abandon the current attempt
	EventRegenerate EventType = "regenerate" // replace the path
)

// Event is one input to the session loop. T is a monotonic reading in
// milliseconds; when nil the session clock timestamps the event. The first
// move a session accepts fixes its time source: every later move must
// either carry T or omit it likewise.
type Event struct {
	Type EventType `json:"type"`
	X    float64   `json:"x,omitempty"`
	Y    float64   `json:"y,omitempty"`
	T    *float64  `json:"t,omitempty"`
}

// Move builds a timestamped move event.
func Move(x, y, t float64) Event {
	return Event{Type: EventMove, X: x, Y: y, T: &t}
}

func (e Event) validate() error {
	switch e.Type {
	case EventMove, EventLeave, EventReset, EventRegenerate:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
}

// Snapshot is the observable state of a session after a batch of events.
type Snapshot struct {
	ID       string                 `json:"id"`
	State    recorder.State         `json:"state"`
	Outcome  recorder.State         `json:"outcome"`
	Failure  recorder.FailureReason `json:"failure,omitempty"`
	Status   recorder.Status        `json:"status"`
	Path     path.Path              `json:"path"`
	Trail    []geometry.Point       `json:"trail"`
	Verdict  *classify.Verdict      `json:"verdict,omitempty"`
	Attempts int                    `json:"attempts"`

	// LastTrail is the trail of the most recently finished attempt, for
	// diagnostic plots.
	LastTrail []geometry.Point `json:"last_trail,omitempty"`
}

// Sink receives verdicts for aggregate statistics. It only ever sees the
// verdict (features and requirement flags), never the trace coordinates.
type Sink interface {
	RecordVerdict(ctx context.Context, attemptID string, v classify.Verdict) error
}

// Config holds the settings shared by every session.
type Config struct {
	Path     path.Config
	Recorder recorder.Config
	Clock    timeutil.Clock
	Sink     Sink

	// SinkTimeout bounds each verdict write. Zero means 5s.
	SinkTimeout time.Duration
	// Verbose logs every status transition, not only outcomes.
	Verbose bool
}

// DefaultConfig returns the standard session configuration with no sink.
func DefaultConfig() Config {
	return Config{
		Path:        path.DefaultConfig(),
		Recorder:    recorder.DefaultConfig(),
		Clock:       timeutil.RealClock{},
		SinkTimeout: 5 * time.Second,
	}
}

type request struct {
	events []Event
	reply  chan Snapshot
}

// Session owns one recorder and the goroutine that feeds it.
type Session struct {
	id            string
	cfg           Config
	width, height float64
	gen           *path.Generator
	rec           *recorder.Recorder

	reqs       chan request
	stopCh     chan struct{}
	doneCh     chan struct{}
	stopOnce   sync.Once
	ctx        context.Context
	cancel     context.CancelFunc
	lastActive atomic.Int64
	timeSource atomic.Int32
}

const (
	timeUnset int32 = iota
	timeClient
	timeClock
)

// pinTimeSource checks that every move in events uses the same time source
// as earlier batches and fixes it on the first move.
func (s *Session) pinTimeSource(events []Event) error {
	src := timeUnset
	for i, ev := range events {
		if ev.Type != EventMove {
			continue
		}
		cur := timeClock
		if ev.T != nil {
			cur = timeClient
		}
		if src != timeUnset && cur != src {
			return fmt.Errorf("event %d: %w", i, ErrMixedTimestamps)
		}
		src = cur
	}
	if src == timeUnset {
		return nil
	}
	if s.timeSource.CompareAndSwap(timeUnset, src) || s.timeSource.Load() == src {
		return nil
	}
	return fmt.Errorf("%w: session already uses %s timestamps", ErrMixedTimestamps, timeSourceName(s.timeSource.Load()))
}

func timeSourceName(src int32) string {
	if src == timeClient {
		return "client"
	}
	return "clock"
}

// New generates the first path for a width×height surface and starts the
// session loop. The only error is path.ErrInvalidBounds.
func New(id string, width, height float64, cfg Config) (*Session, error) {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}

	gen := path.NewGenerator(cfg.Path, nil)
	p, err := gen.Generate(width, height)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		cfg:    cfg,
		width:  width,
		height: height,
		gen:    gen,
		reqs:   make(chan request),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	s.rec = recorder.New(cfg.Recorder,
		recorder.WithClock(cfg.Clock),
		recorder.OnStatus(s.onStatus),
		recorder.OnVerdict(s.onVerdict),
	)
	if err := s.rec.SetPath(p); err != nil {
		cancel()
		return nil, err
	}
	s.touch()

	go s.run()
	return s, nil
}

// ID returns the attempt identifier.
func (s *Session) ID() string { return s.id }

// LastActive returns when the session last received a dispatch.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Dispatch processes events in order and returns the snapshot taken after
// the last one. An empty batch just reads the current snapshot.
func (s *Session) Dispatch(ctx context.Context, events ...Event) (Snapshot, error) {
	for i, ev := range events {
		if err := ev.validate(); err != nil {
			return Snapshot{}, fmt.Errorf("event %d: %w", i, err)
		}
	}
	if err := s.pinTimeSource(events); err != nil {
		return Snapshot{}, err
	}

	req := request{events: events, reply: make(chan Snapshot, 1)}
	select {
	case s.reqs <- req:
	case <-s.stopCh:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	s.touch()

	select {
	case snap := <-req.reply:
		return snap, nil
	case <-s.doneCh:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Snapshot returns the current state without feeding any events.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.Dispatch(ctx)
}

// Close stops the loop and waits for it to exit. It is safe to call more
// than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.cancel()
	})
	<-s.doneCh
}

// Done is closed once the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.doneCh }

func (s *Session) touch() {
	s.lastActive.Store(s.cfg.Clock.Now().UnixNano())
}

func (s *Session) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case req := <-s.reqs:
			for _, ev := range req.events {
				s.apply(ev)
			}
			req.reply <- s.snapshot()
		}
	}
}

func (s *Session) apply(ev Event) {
	switch ev.Type {
	case EventMove:
		p := geometry.Point{X: ev.X, Y: ev.Y}
		if ev.T != nil {
			s.rec.Move(p, *ev.T)
		} else {
			s.rec.MoveNow(p)
		}
	case EventLeave:
		s.rec.Leave()
	case EventReset:
		s.rec.Reset()
	case EventRegenerate:
		p, err := s.gen.Generate(s.width, s.height)
		if err != nil {
			monitoring.Attemptf(s.id, "regenerate failed: %v", err)
			return
		}
		if err := s.rec.SetPath(p); err != nil {
			monitoring.Attemptf(s.id, "install path failed: %v", err)
		}
	}
}

func (s *Session) snapshot() Snapshot {
	p, _ := s.rec.Path()
	p.Points = append([]geometry.Point(nil), p.Points...)
	return Snapshot{
		ID:       s.id,
		State:    s.rec.State(),
		Outcome:  s.rec.Outcome(),
		Failure:  s.rec.LastFailure(),
		Status:   s.rec.Status(),
		Path:     p,
		Trail:    s.rec.Trail(),
		Verdict:  s.rec.Verdict(),
		Attempts: s.rec.Attempts(),

		LastTrail: s.rec.LastTrail(),
	}
}

func (s *Session) onStatus(st recorder.Status) {
	switch {
	case st.Tone == recorder.ToneFail && s.rec != nil && s.rec.LastFailure() != recorder.ReasonNone:
		monitoring.Attemptf(s.id, "attempt failed: %s", s.rec.LastFailure())
	case s.cfg.Verbose:
		monitoring.Attemptf(s.id, "status %s: %s", st.Tone, st.Text)
	}
}

func (s *Session) onVerdict(v classify.Verdict) {
	monitoring.Attemptf(s.id, "verdict pass=%t samples=%d failed=%v",
		v.Pass, v.Features.SampleCount, v.FailedRequirements())
	if s.cfg.Sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SinkTimeout)
	defer cancel()
	if err := s.cfg.Sink.RecordVerdict(ctx, s.id, v); err != nil {
		monitoring.Attemptf(s.id, "failed to record verdict: %v", err)
	}
}
