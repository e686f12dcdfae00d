package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.check/internal/monitoring"
	"github.com/banshee-data/motion.check/internal/timeutil"
)

var (
	// ErrNotFound is returned for unknown attempt ids.
	ErrNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the registry is at capacity.
	ErrTooManySessions = errors.New("too many sessions")
)

// DefaultMaxSessions caps concurrent sessions when no limit is configured.
const DefaultMaxSessions = 1024

// Registry maps attempt ids to running sessions.
type Registry struct {
	cfg         Config
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. maxSessions <= 0 uses
// DefaultMaxSessions.
func NewRegistry(cfg Config, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Registry{
		cfg:         cfg,
		maxSessions: maxSessions,
		sessions:    make(map[string]*Session),
	}
}

// Config returns the configuration new sessions are created with.
func (r *Registry) Config() Config { return r.cfg }

// Create starts a session for a width×height surface under a fresh id.
func (r *Registry) Create(width, height float64) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		return nil, fmt.Errorf("%w: limit %d", ErrTooManySessions, r.maxSessions)
	}
	id := uuid.NewString()
	s, err := New(id, width, height, r.cfg)
	if err != nil {
		return nil, err
	}
	r.sessions[id] = s
	monitoring.Attemptf(id, "session started on %gx%g surface (%d active)", width, height, len(r.sessions))
	return s, nil
}

// Get returns the session for id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Close stops and removes the session for id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Close()
	monitoring.Attemptf(id, "session closed")
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reap closes sessions idle for longer than idle and returns how many were
// removed.
func (r *Registry) Reap(idle time.Duration) int {
	clock := r.cfg.Clock
	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if clock.Since(s.LastActive()) > idle {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
		monitoring.Attemptf(s.ID(), "session reaped after %v idle", idle)
	}
	return len(stale)
}

// CloseAll stops every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
