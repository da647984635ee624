package web

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cjeanneret/SunSnap/internal/debug"
	"github.com/cjeanneret/SunSnap/internal/logic/allowlist"
	"github.com/cjeanneret/SunSnap/internal/logic/cadence"
	"github.com/cjeanneret/SunSnap/internal/logic/solar"
	"github.com/cjeanneret/SunSnap/internal/metrics"
)

// WindowSource computes today's windows and describes how; *solar.Calculator satisfies it.
type WindowSource interface {
	Compute(now time.Time) solar.Result
	Location() solar.Location
	Policy() solar.MarginPolicy
}

// ConfigView is the effective configuration exposed on GET /config.
type ConfigView struct {
	Location          solar.Location `json:"location"`
	IntervalSec       int            `json:"interval_sec"`
	WindowIntervalSec int            `json:"window_interval_sec"`
	MarginPolicy      string         `json:"margin_policy"`
	Cameras           []string       `json:"cameras"`
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Broadcaster *StatusBroadcaster
	Windows     WindowSource
	Decider     *cadence.Decider
	AllowList   allowlist.AllowList
	Clock       cadence.Clock
	Config      ConfigView
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Deps
	staticFS fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// A nil Clock uses the system clock.
func NewHandlers(deps Deps, staticFS fs.FS) *Handlers {
	if deps.Clock == nil {
		deps.Clock = cadence.SystemClock{}
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = NewStatusBroadcaster()
	}
	return &Handlers{Deps: deps, staticFS: staticFS}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the effective configuration as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Config)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// WindowsResponse is the body of GET /windows.
type WindowsResponse struct {
	Available bool           `json:"available"`
	Error     string         `json:"error,omitempty"`
	Policy    string         `json:"policy"`
	Location  solar.Location `json:"location"`
	Now       time.Time      `json:"now"`
	Active    string         `json:"active,omitempty"`
	Events    *solar.Events  `json:"events,omitempty"`
	Windows   *solar.Windows `json:"windows,omitempty"`
}

// HandleWindows handles GET /windows: today's solar events and windows.
// An unavailable computation is reported in the body with status 200.
func (h *Handlers) HandleWindows(w http.ResponseWriter, r *http.Request) {
	now := h.Clock.Now()
	res := h.Windows.Compute(now)

	resp := WindowsResponse{
		Available: res.Available(),
		Policy:    h.Windows.Policy().Name(),
		Location:  h.Windows.Location(),
		Now:       now,
	}
	if res.Available() {
		resp.Events = &res.Events
		resp.Windows = &res.Windows
		resp.Active = res.Windows.Containing(now)
	} else {
		resp.Error = res.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// DecisionResponse is the body of GET /decision.
type DecisionResponse struct {
	Camera      string  `json:"camera"`
	Type        string  `json:"type"`
	Skip        bool    `json:"skip"`
	Take        bool    `json:"take"`
	IntervalSec float64 `json:"interval_sec"`
	ElapsedSec  float64 `json:"elapsed_sec"`
	Window      string  `json:"window,omitempty"`
	Fallback    bool    `json:"fallback"`
}

// HandleDecision handles GET /decision?camera=NAME&type=rtsp&last=UNIX.
// A camera outside the allow-list is skipped without a cadence check.
func (h *Handlers) HandleDecision(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	camera := q.Get("camera")
	source := strings.TrimSpace(q.Get("type"))
	if source == "" {
		source = string(cadence.SourceRTSP)
	}

	var last float64
	if raw := strings.TrimSpace(q.Get("last")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			debug.Error(fmt.Errorf("decision for camera %q: bad last %q: %w", camera, raw, err))
			http.Error(w, "last must be seconds since the epoch", http.StatusBadRequest)
			return
		}
		last = v
	}

	resp := DecisionResponse{Camera: camera, Type: source}
	if h.AllowList.ShouldSkip(camera) {
		metrics.ObserveCameraSkip()
		resp.Skip = true
		writeJSON(w, http.StatusOK, resp)
		return
	}

	dec := h.Decider.Decide(cadence.SourceType(source), cadence.LastSnapFromUnix(last))
	resp.Take = dec.Take
	resp.IntervalSec = dec.Interval.Seconds()
	resp.ElapsedSec = dec.Elapsed.Seconds()
	resp.Window = dec.Window
	resp.Fallback = dec.Fallback
	writeJSON(w, http.StatusOK, resp)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()
		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
