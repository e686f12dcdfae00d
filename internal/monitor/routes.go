package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/motion.check/internal/httputil"
	"github.com/banshee-data/motion.check/internal/motion/session"
)

// Register adds the attempt plot and verdict dashboard to the debug
// surface. The plot route carries the attempt id in its path, so it is
// mounted on mux directly behind tsweb.Protected. A nil src skips the
// dashboard.
func Register(debug *tsweb.DebugHandler, mux *http.ServeMux, reg *session.Registry, src VerdictSource) {
	rc := reg.Config().Recorder
	anchors := Anchors{StartRadius: rc.StartRadius, EndRadius: rc.EndRadius}
	mux.Handle("/debug/attempts/{id}/plot.png", tsweb.Protected(TracePlotHandler(reg, anchors)))
	if src != nil {
		debug.Handle("verdicts", "Recent verdicts and failed requirements", VerdictChartHandler(src))
	}
}

// TracePlotHandler serves the trace plot of one attempt as a PNG.
func TracePlotHandler(reg *session.Registry, a Anchors) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s, err := reg.Get(r.PathValue("id"))
		if err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		snap, err := s.Snapshot(r.Context())
		if errors.Is(err, session.ErrClosed) {
			httputil.Gone(w, err.Error())
			return
		} else if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}

		var buf bytes.Buffer
		if err := WriteTracePNG(&buf, snap, a); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}
}

// VerdictChartHandler serves the verdict dashboard. Query params: limit
// (recent verdicts, default 500) and days (summary window, default 7).
func VerdictChartHandler(src VerdictSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 500
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 5000 {
				httputil.BadRequest(w, "limit must be between 1 and 5000")
				return
			}
			limit = n
		}
		days := 7
		if s := r.URL.Query().Get("days"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				httputil.BadRequest(w, "days must be a positive integer")
				return
			}
			days = n
		}
		since := time.Now().AddDate(0, 0, -days)

		var buf bytes.Buffer
		if err := RenderVerdictChart(r.Context(), &buf, src, limit, since); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	}
}
