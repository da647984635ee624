package solar

import (
	"fmt"
	"strings"
	"time"

	"github.com/cjeanneret/SunSnap/internal/debug"
)

// Location is the site whose sky decides the snapshot cadence.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Timezone is an IANA name; "" or "Local" means the zone of the host.
	Timezone string `json:"timezone"`
}

// ZoneResolver turns a zone name into a *time.Location.
type ZoneResolver interface {
	Resolve(name string) (*time.Location, error)
}

// SystemZones resolves zones from the host tz database.
type SystemZones struct{}

func (SystemZones) Resolve(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// ZoneFunc adapts a function to ZoneResolver.
type ZoneFunc func(name string) (*time.Location, error)

func (f ZoneFunc) Resolve(name string) (*time.Location, error) { return f(name) }

// Result is the outcome of one window computation. Either Err is nil and
// Events/Windows are valid, or Err wraps ErrComputation and the windows
// are unavailable.
type Result struct {
	Events  Events
	Windows Windows
	Err     error
}

// Available reports whether windows were computed.
func (r Result) Available() bool { return r.Err == nil }

// Calculator computes today's solar windows for a fixed location.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	location Location
	zones    ZoneResolver
	policy   MarginPolicy
}

// NewCalculator returns a calculator. A nil zones uses SystemZones and a
// nil policy uses Twilight with a one hour pad.
func NewCalculator(loc Location, zones ZoneResolver, policy MarginPolicy) *Calculator {
	if zones == nil {
		zones = SystemZones{}
	}
	if policy == nil {
		policy = Twilight{Pad: time.Hour}
	}
	return &Calculator{location: loc, zones: zones, policy: policy}
}

// Location returns the configured site.
func (c *Calculator) Location() Location { return c.location }

// Policy returns the margin policy in use.
func (c *Calculator) Policy() MarginPolicy { return c.policy }

// Compute returns the events and windows for the local date of now.
func (c *Calculator) Compute(now time.Time) Result {
	zone, err := c.zones.Resolve(c.location.Timezone)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: resolve time zone %q: %v", ErrComputation, c.location.Timezone, err)}
	}
	if zone == nil {
		return Result{Err: fmt.Errorf("%w: resolve time zone %q: no zone returned", ErrComputation, c.location.Timezone)}
	}

	ev, err := ComputeEvents(c.location.Latitude, c.location.Longitude, now.In(zone), zone)
	if err != nil {
		return Result{Err: err}
	}
	debug.Verbose("Solar events %s: dawn=%s sunrise=%s sunset=%s dusk=%s",
		ev.Sunrise.Format(time.DateOnly), ev.Dawn.Format("15:04:05"), ev.Sunrise.Format("15:04:05"),
		ev.Sunset.Format("15:04:05"), ev.Dusk.Format("15:04:05"))
	return Result{Events: ev, Windows: c.policy.Windows(ev)}
}
