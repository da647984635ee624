package cadence

import (
	"math"
	"time"

	"github.com/cjeanneret/SunSnap/internal/debug"
	"github.com/cjeanneret/SunSnap/internal/logic/solar"
	"github.com/cjeanneret/SunSnap/internal/metrics"
)

// SourceType identifies where a snapshot request originates.
type SourceType string

const (
	// SourceRTSP is a still grabbed from the live RTSP stream. It is the
	// only source whose cadence is gated here.
	SourceRTSP SourceType = "rtsp"
	// SourceAPI is a thumbnail fetched from the camera's cloud API.
	SourceAPI SourceType = "api"
)

// DefaultWindowInterval is the cadence inside the sunrise and sunset windows.
const DefaultWindowInterval = 30 * time.Second

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// WindowSource computes today's solar windows; *solar.Calculator satisfies it.
type WindowSource interface {
	Compute(now time.Time) solar.Result
}

// Config holds the intervals applied by a Decider.
type Config struct {
	DefaultInterval time.Duration // outside the windows, or when they cannot be computed
	WindowInterval  time.Duration // inside the sunrise or sunset window
}

// Decision explains one cadence check.
type Decision struct {
	Take     bool          `json:"take"`
	Gated    bool          `json:"gated"` // false for sources never interval-checked
	Interval time.Duration `json:"interval"`
	Elapsed  time.Duration `json:"elapsed"`
	Window   string        `json:"window,omitempty"`
	Fallback bool          `json:"fallback"` // windows unavailable, default interval used
	Now      time.Time     `json:"now"`
}

// Decider answers whether a new snapshot is due. It keeps no mutable
// state and may be shared between goroutines.
type Decider struct {
	windows WindowSource
	clock   Clock
	cfg     Config
}

// NewDecider returns a Decider. A nil clock uses SystemClock and a
// non-positive WindowInterval uses DefaultWindowInterval.
func NewDecider(windows WindowSource, clock Clock, cfg Config) *Decider {
	if clock == nil {
		clock = SystemClock{}
	}
	if cfg.WindowInterval <= 0 {
		cfg.WindowInterval = DefaultWindowInterval
	}
	return &Decider{windows: windows, clock: clock, cfg: cfg}
}

// Config returns the intervals in use.
func (d *Decider) Config() Config { return d.cfg }

// ShouldTakeSnapshot reports whether a snapshot of the given source type
// should be taken now, given when the last one was taken.
func (d *Decider) ShouldTakeSnapshot(source SourceType, lastSnap time.Time) bool {
	return d.Decide(source, lastSnap).Take
}

// Decide is ShouldTakeSnapshot with the reasoning attached.
func (d *Decider) Decide(source SourceType, lastSnap time.Time) Decision {
	now := d.clock.Now()
	if source != SourceRTSP {
		dec := Decision{Now: now, Elapsed: now.Sub(lastSnap)}
		metrics.ObserveDecision(string(source), "", false)
		return dec
	}

	dec := Decision{Gated: true, Now: now, Interval: d.cfg.DefaultInterval}
	res := d.windows.Compute(now)
	if res.Available() {
		if w := res.Windows.Containing(now); w != "" {
			dec.Window = w
			dec.Interval = d.cfg.WindowInterval
		}
	} else {
		dec.Fallback = true
		debug.Failure("Error calculating sunrise/sunset times", res.Err)
		metrics.ObserveSolarFailure()
	}

	dec.Elapsed = now.Sub(lastSnap)
	dec.Take = dec.Elapsed >= dec.Interval
	debug.Decision(string(source), dec.Take, dec.Elapsed, dec.Interval, dec.Window)
	metrics.ObserveDecision(string(source), dec.Window, dec.Take)
	return dec
}

// LastSnapFromUnix converts seconds since the epoch, possibly fractional,
// into a time. Zero or negative means "never" and maps to the epoch.
func LastSnapFromUnix(sec float64) time.Time {
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Unix(0, 0)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}
