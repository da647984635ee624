package solar

import (
	"fmt"
	"strings"
	"time"
)

// Window is a closed interval of time: both bounds count as inside.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Window names reported by Windows.Containing.
const (
	SunriseWindow = "sunrise"
	SunsetWindow  = "sunset"
)

// Windows are the two intervals of a day during which cadence is shortened.
type Windows struct {
	Sunrise Window `json:"sunrise"`
	Sunset  Window `json:"sunset"`
}

// Containing returns the name of the window holding t, or "" if none does.
func (ws Windows) Containing(t time.Time) string {
	switch {
	case ws.Sunrise.Contains(t):
		return SunriseWindow
	case ws.Sunset.Contains(t):
		return SunsetWindow
	default:
		return ""
	}
}

// MarginPolicy derives the sunrise and sunset windows from a day's events.
type MarginPolicy interface {
	Name() string
	Windows(ev Events) Windows
}

// Policy names accepted by ParsePolicy.
const (
	PolicyTwilight = "twilight"
	PolicyFlat     = "flat"
)

// Twilight widens each window by the twilight length on the far side of
// sunrise/sunset, then pads both ends:
//
//	sunrise: [dawn − pad, sunrise + (sunrise − dawn) + pad]
//	sunset:  [sunset − (dusk − sunset) − pad, dusk + pad]
type Twilight struct {
	Pad time.Duration
}

func (p Twilight) Name() string { return PolicyTwilight }

func (p Twilight) Windows(ev Events) Windows {
	morning := ev.Sunrise.Sub(ev.Dawn)
	evening := ev.Dusk.Sub(ev.Sunset)
	return Windows{
		Sunrise: Window{
			Start: ev.Dawn.Add(-p.Pad),
			End:   ev.Sunrise.Add(morning + p.Pad),
		},
		Sunset: Window{
			Start: ev.Sunset.Add(-evening - p.Pad),
			End:   ev.Dusk.Add(p.Pad),
		},
	}
}

// Flat brackets sunrise and sunset by a fixed margin on each side.
type Flat struct {
	Margin time.Duration
}

func (p Flat) Name() string { return PolicyFlat }

func (p Flat) Windows(ev Events) Windows {
	return Windows{
		Sunrise: Window{Start: ev.Sunrise.Add(-p.Margin), End: ev.Sunrise.Add(p.Margin)},
		Sunset:  Window{Start: ev.Sunset.Add(-p.Margin), End: ev.Sunset.Add(p.Margin)},
	}
}

// ParsePolicy selects a margin policy by name.
func ParsePolicy(name string, flatMargin, twilightPad time.Duration) (MarginPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyTwilight:
		if twilightPad <= 0 {
			return nil, fmt.Errorf("twilight pad must be > 0, got %s", twilightPad)
		}
		return Twilight{Pad: twilightPad}, nil
	case PolicyFlat:
		if flatMargin <= 0 {
			return nil, fmt.Errorf("flat margin must be > 0, got %s", flatMargin)
		}
		return Flat{Margin: flatMargin}, nil
	default:
		return nil, fmt.Errorf("unknown margin policy %q (want %q or %q)", name, PolicyTwilight, PolicyFlat)
	}
}
