package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	snapshotDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunsnap_snapshot_decisions_total",
			Help: "Snapshot cadence decisions by source type, active solar window and outcome.",
		},
		[]string{"source", "window", "result"},
	)

	solarFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sunsnap_solar_computation_failures_total",
			Help: "Solar window computations that failed and fell back to the default interval.",
		},
	)

	cameraSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sunsnap_camera_skips_total",
			Help: "Snapshot checks skipped because the camera is not in the allow-list.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunsnap_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sunsnap_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(snapshotDecisionsTotal)
	prometheus.MustRegister(solarFailuresTotal)
	prometheus.MustRegister(cameraSkipsTotal)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDecision records one cadence decision. window is "" outside the
// solar windows and is reported as "none". Unknown sources are reported as "other".
func ObserveDecision(source, window string, take bool) {
	if window == "" {
		window = "none"
	}
	result := "wait"
	if take {
		result = "take"
	}
	snapshotDecisionsTotal.WithLabelValues(normalizeSource(source), window, result).Inc()
}

// ObserveSolarFailure records a failed window computation.
func ObserveSolarFailure() {
	solarFailuresTotal.Inc()
}

// ObserveCameraSkip records a camera rejected by the allow-list.
func ObserveCameraSkip() {
	cameraSkipsTotal.Inc()
}

// knownRoutes are the only path labels emitted; anything else is "other".
var knownRoutes = map[string]bool{
	"/":              true,
	"/config":        true,
	"/windows":       true,
	"/decision":      true,
	"/status/stream": true,
	"/metrics":       true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// knownSources are the only source labels emitted; anything else is "other".
var knownSources = map[string]bool{
	"rtsp": true,
	"api":  true,
}

func normalizeSource(source string) string {
	if knownSources[source] {
		return source
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE keeps working behind the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
