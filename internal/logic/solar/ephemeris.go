package solar

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cjeanneret/SunSnap/internal/debug"
)

// ErrComputation is wrapped by every failure to produce solar events or
// windows (unknown zone, invalid coordinates, event not occurring that day).
var ErrComputation = errors.New("solar computation failed")

const (
	// j2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00 TT).
	j2000 = 2451545.0
	// unixEpochJD is the Julian Date of 1970-01-01T00:00:00Z.
	unixEpochJD = 2440587.5

	obliquityDeg  = 23.4397
	perihelionDeg = 102.9372

	// Altitude of the sun's centre at apparent sunrise/sunset: refraction
	// (34') plus the solar semi-diameter (16').
	SunriseAltitudeDeg = -0.833
	// Civil twilight starts and ends with the sun 6° below the horizon.
	CivilAltitudeDeg = -6.0
)

// Events are the four solar instants of one local calendar day.
// Dawn <= Sunrise <= Sunset <= Dusk always holds when computed.
type Events struct {
	Dawn    time.Time `json:"dawn"`
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
	Dusk    time.Time `json:"dusk"`
}

// transit holds the per-day quantities shared by every event of that day.
type transit struct {
	jd          float64 // Julian Date of solar noon
	declination float64 // radians
}

// ComputeEvents returns civil dawn, sunrise, sunset and civil dusk for the
// calendar date of day (as seen in zone) at the given coordinates.
// Results are expressed in zone.
//
// Uses the sunrise equation: Julian day number, mean solar anomaly,
// equation of the centre, ecliptic longitude, solar transit, declination,
// then the hour angle at which the sun reaches a given altitude:
//
//	cos ω = (sin h − sin φ sin δ) / (cos φ cos δ)
//
// Accuracy is about one minute for non-polar latitudes.
func ComputeEvents(latitude, longitude float64, day time.Time, zone *time.Location) (Events, error) {
	if err := validateCoordinates(latitude, longitude); err != nil {
		return Events{}, err
	}
	if zone == nil {
		return Events{}, fmt.Errorf("%w: nil time zone", ErrComputation)
	}

	local := day.In(zone)
	tr := solarTransit(local, longitude)
	debug.Trace("solar noon JD=%.5f declination=%.4f°", tr.jd, tr.declination*180/math.Pi)

	dawn, dusk, err := eventPair(tr, latitude, CivilAltitudeDeg)
	if err != nil {
		return Events{}, fmt.Errorf("civil twilight on %s: %w", local.Format(time.DateOnly), err)
	}
	sunrise, sunset, err := eventPair(tr, latitude, SunriseAltitudeDeg)
	if err != nil {
		return Events{}, fmt.Errorf("sunrise/sunset on %s: %w", local.Format(time.DateOnly), err)
	}

	return Events{
		Dawn:    dawn.In(zone),
		Sunrise: sunrise.In(zone),
		Sunset:  sunset.In(zone),
		Dusk:    dusk.In(zone),
	}, nil
}

func validateCoordinates(latitude, longitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90, got %g", ErrComputation, latitude)
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180, got %g", ErrComputation, longitude)
	}
	return nil
}

// solarTransit computes solar noon and declination for the local date.
// The day number picks the transit nearest local clock noon, so zones far
// from their meridian (UTC+13 at 172°W) still get the same calendar day.
func solarTransit(local time.Time, longitude float64) transit {
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, local.Location())
	n := math.Round(JulianDate(noon) - j2000 + longitude/360.0)

	// Mean solar time, east longitude positive.
	jStar := n - longitude/360.0

	m := normalizeDeg(357.5291 + 0.98560028*jStar)
	mRad := radians(m)
	c := 1.9148*math.Sin(mRad) + 0.0200*math.Sin(2*mRad) + 0.0003*math.Sin(3*mRad)
	lambda := normalizeDeg(m + c + 180 + perihelionDeg)
	lRad := radians(lambda)

	jTransit := j2000 + jStar + 0.0053*math.Sin(mRad) - 0.0069*math.Sin(2*lRad)
	decl := math.Asin(math.Sin(lRad) * math.Sin(radians(obliquityDeg)))

	return transit{jd: jTransit, declination: decl}
}

// eventPair returns the morning and evening instants at which the sun's
// centre crosses altitudeDeg.
func eventPair(tr transit, latitude, altitudeDeg float64) (time.Time, time.Time, error) {
	phi := radians(latitude)
	cosOmega := (math.Sin(radians(altitudeDeg)) - math.Sin(phi)*math.Sin(tr.declination)) /
		(math.Cos(phi) * math.Cos(tr.declination))

	switch {
	case math.IsNaN(cosOmega):
		return time.Time{}, time.Time{}, fmt.Errorf("%w: hour angle undefined at latitude %g", ErrComputation, latitude)
	case cosOmega > 1:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: sun stays below %g°", ErrComputation, altitudeDeg)
	case cosOmega < -1:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: sun stays above %g°", ErrComputation, altitudeDeg)
	}

	omega := math.Acos(cosOmega) * 180 / math.Pi
	return fromJulian(tr.jd - omega/360.0), fromJulian(tr.jd + omega/360.0), nil
}

// JulianDate converts a time.Time to Julian Date.
func JulianDate(t time.Time) float64 {
	return float64(t.UnixNano())/float64(24*time.Hour) + unixEpochJD
}

func fromJulian(jd float64) time.Time {
	ns := (jd - unixEpochJD) * float64(24*time.Hour)
	return time.Unix(0, int64(ns)).UTC().Round(time.Second)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func normalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
