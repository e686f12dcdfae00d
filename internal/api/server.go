// Package api exposes attempt sessions over HTTP.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/motion.check/internal/httputil"
	"github.com/banshee-data/motion.check/internal/motion/classify"
	"github.com/banshee-data/motion.check/internal/motion/session"
	"github.com/banshee-data/motion.check/internal/telemetry"
	"github.com/banshee-data/motion.check/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// DefaultSimplifyTolerance is the Douglas-Peucker tolerance, in pixels,
// applied to trails returned to the renderer.
const DefaultSimplifyTolerance = 0.75

// MaxEventsPerRequest caps the size of one event batch.
const MaxEventsPerRequest = 2000

// VerdictStats is the read side of the telemetry store.
type VerdictStats interface {
	PassRate(ctx context.Context, since time.Time) (telemetry.PassRateSummary, error)
	RecentVerdicts(ctx context.Context, limit int) ([]telemetry.VerdictRecord, error)
}

type Server struct {
	sessions  *session.Registry
	stats     VerdictStats
	tolerance float64
}

// NewServer creates the API server. stats may be nil when no telemetry
// store is configured; the stats endpoint then reports 404.
func NewServer(sessions *session.Registry, stats VerdictStats) *Server {
	return &Server{
		sessions:  sessions,
		stats:     stats,
		tolerance: DefaultSimplifyTolerance,
	}
}

// SetSimplifyTolerance changes the trail simplification tolerance. Zero
// disables simplification.
func (s *Server) SetSimplifyTolerance(tol float64) { s.tolerance = tol }

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns a mux with every API route registered.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/attempts", s.handleAttempts)
	mux.HandleFunc("/api/attempts/{id}", s.handleAttempt)
	mux.HandleFunc("/api/attempts/{id}/events", s.handleEvents)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/verdicts", s.showVerdicts)
	mux.HandleFunc("/api/version", s.showVersion)
}

type configResponse struct {
	Path struct {
		Segments    int     `json:"segments"`
		PaddingX    float64 `json:"padding_x"`
		PaddingY    float64 `json:"padding_y"`
		StartJitter float64 `json:"start_jitter"`
		StepJitter  float64 `json:"step_jitter"`
		StrokeWidth float64 `json:"stroke_width"`
	} `json:"path"`
	Recorder struct {
		StartRadius    float64 `json:"start_radius"`
		EndRadius      float64 `json:"end_radius"`
		EndMargin      float64 `json:"end_margin"`
		CollisionSlack float64 `json:"collision_slack"`
		DTFloorMs      float64 `json:"dt_floor_ms"`
		MinSamples     int     `json:"min_samples"`
	} `json:"recorder"`
	Features struct {
		Window              int     `json:"window"`
		JitterPixels        float64 `json:"jitter_pixels"`
		MinVectorMagnitude  float64 `json:"min_vector_magnitude"`
		DirectionSimilarity float64 `json:"direction_similarity"`
		IdlePauseMs         float64 `json:"idle_pause_ms"`
	} `json:"features"`
	Thresholds struct {
		Variance       float64 `json:"variance"`
		CV             float64 `json:"cv"`
		DirectionNoise float64 `json:"direction_noise"`
		JitterRatio    float64 `json:"jitter_ratio"`
		MinIdlePauses  int     `json:"min_idle_pauses"`
		MinSamples     int     `json:"min_samples"`
	} `json:"thresholds"`
	Model string `json:"model"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	cfg := s.sessions.Config()
	var resp configResponse
	p, rc, fp, th := cfg.Path, cfg.Recorder, cfg.Recorder.Features, cfg.Recorder.Thresholds

	resp.Path.Segments = p.Segments
	resp.Path.PaddingX = p.PaddingX
	resp.Path.PaddingY = p.PaddingY
	resp.Path.StartJitter = p.StartJitter
	resp.Path.StepJitter = p.StepJitter
	resp.Path.StrokeWidth = p.StrokeWidth

	resp.Recorder.StartRadius = rc.StartRadius
	resp.Recorder.EndRadius = rc.EndRadius
	resp.Recorder.EndMargin = rc.EndMargin
	resp.Recorder.CollisionSlack = rc.CollisionSlack
	resp.Recorder.DTFloorMs = rc.DTFloor
	resp.Recorder.MinSamples = rc.MinSamples

	resp.Features.Window = fp.Window
	resp.Features.JitterPixels = fp.JitterPixels
	resp.Features.MinVectorMagnitude = fp.MinVectorMagnitude
	resp.Features.DirectionSimilarity = fp.DirectionSimilarity
	resp.Features.IdlePauseMs = fp.IdlePauseMs

	resp.Thresholds.Variance = th.Variance
	resp.Thresholds.CV = th.CV
	resp.Thresholds.DirectionNoise = th.DirectionNoise
	resp.Thresholds.JitterRatio = th.JitterRatio
	resp.Thresholds.MinIdlePauses = th.MinIdlePauses
	resp.Thresholds.MinSamples = th.MinSamples
	resp.Model = classify.ModelVersion

	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.stats == nil {
		httputil.NotFound(w, "telemetry is disabled")
		return
	}

	days := 1 // default value
	if d := r.URL.Query().Get("days"); d != "" {
		parsedDays, err := strconv.Atoi(d)
		if err != nil || parsedDays < 1 {
			httputil.BadRequest(w, "Invalid 'days' parameter")
			return
		}
		days = parsedDays
	}

	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	sum, err := s.stats.PassRate(r.Context(), since)
	if err != nil {
		httputil.InternalServerError(w, "Failed to compute pass rate")
		return
	}
	httputil.WriteJSONOK(w, sum)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
