package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/motion.check/internal/httputil"
	"github.com/banshee-data/motion.check/internal/monitoring"
	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/geometry"
	"github.com/banshee-data/motion.check/internal/motion/path"
	"github.com/banshee-data/motion.check/internal/motion/recorder"
	"github.com/banshee-data/motion.check/internal/motion/session"
)

// CreateAttemptRequest is the body of POST /api/attempts.
type CreateAttemptRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EventsRequest is the body of POST /api/attempts/{id}/events.
type EventsRequest struct {
	Events []session.Event `json:"events"`
}

// Anchor is a start or end target.
type Anchor struct {
	geometry.Point
	Radius float64 `json:"radius"`
}

// AttemptResponse is the renderer-facing view of a session snapshot.
type AttemptResponse struct {
	ID           string                 `json:"id"`
	State        recorder.State         `json:"state"`
	Outcome      recorder.State         `json:"outcome"`
	Failure      recorder.FailureReason `json:"failure,omitempty"`
	Status       recorder.Status        `json:"status"`
	Path         path.Path              `json:"path"`
	Bounds       [4]float64             `json:"bounds"` // min x, min y, max x, max y
	Start        Anchor                 `json:"start"`
	End          Anchor                 `json:"end"`
	Trail        []geometry.Point       `json:"trail"`
	TrailSamples int                    `json:"trail_samples"`
	Verdict      *classify.Verdict      `json:"verdict,omitempty"`
	Attempts     int                    `json:"attempts"`
}

func (s *Server) attemptResponse(snap session.Snapshot) AttemptResponse {
	cfg := s.sessions.Config().Recorder
	b := snap.Path.Bounds()
	return AttemptResponse{
		ID:           snap.ID,
		State:        snap.State,
		Outcome:      snap.Outcome,
		Failure:      snap.Failure,
		Status:       snap.Status,
		Path:         snap.Path,
		Bounds:       [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()},
		Start:        Anchor{Point: snap.Path.Start(), Radius: cfg.StartRadius},
		End:          Anchor{Point: snap.Path.End(), Radius: cfg.EndRadius},
		Trail:        geometry.Simplify(snap.Trail, s.tolerance),
		TrailSamples: len(snap.Trail),
		Verdict:      snap.Verdict,
		Attempts:     snap.Attempts,
	}
}

// writeSessionError maps session and path errors to HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, session.ErrClosed):
		httputil.Gone(w, err.Error())
	case errors.Is(err, session.ErrTooManySessions):
		httputil.TooManyRequests(w, err.Error())
	case errors.Is(err, path.ErrInvalidBounds), errors.Is(err, session.ErrUnknownEvent),
		errors.Is(err, session.ErrMixedTimestamps):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		monitoring.Logf("attempt request failed: %v", err)
		httputil.InternalServerError(w, "internal error")
	}
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req CreateAttemptRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	sess, err := s.sessions.Create(req.Width, req.Height)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, s.attemptResponse(snap))
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		sess, err := s.sessions.Get(id)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		snap, err := sess.Snapshot(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}
		httputil.WriteJSONOK(w, s.attemptResponse(snap))
	case http.MethodDelete:
		if err := s.sessions.Close(id); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req EventsRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(req.Events) > MaxEventsPerRequest {
		httputil.BadRequest(w, fmt.Sprintf("at most %d events per request", MaxEventsPerRequest))
		return
	}

	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	snap, err := sess.Dispatch(r.Context(), req.Events...)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.attemptResponse(snap))
}

func (s *Server) showVerdicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.stats == nil {
		httputil.NotFound(w, "telemetry is disabled")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 1000 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	records, err := s.stats.RecentVerdicts(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve verdicts")
		return
	}
	httputil.WriteJSONOK(w, records)
}
