package solar

import (
	"errors"
	"testing"
	"time"
)

// sampleEvents is a synthetic day: 40 min of morning twilight, 30 min of evening twilight.
func sampleEvents() Events {
	return Events{
		Dawn:    time.Date(2024, time.June, 21, 5, 20, 0, 0, time.UTC),
		Sunrise: time.Date(2024, time.June, 21, 6, 0, 0, 0, time.UTC),
		Sunset:  time.Date(2024, time.June, 21, 20, 0, 0, 0, time.UTC),
		Dusk:    time.Date(2024, time.June, 21, 20, 30, 0, 0, time.UTC),
	}
}

// ---------- Window ----------

func TestWindow_ContainsIsInclusive(t *testing.T) {
	start := time.Date(2024, time.June, 21, 6, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(time.Hour)}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before", start.Add(-time.Nanosecond), false},
		{"start", start, true},
		{"middle", start.Add(30 * time.Minute), true},
		{"end", start.Add(time.Hour), true},
		{"after", start.Add(time.Hour + time.Nanosecond), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.Contains(tc.t); got != tc.want {
				t.Errorf("Contains(%s) = %v, want %v", tc.t.Format(time.TimeOnly), got, tc.want)
			}
		})
	}
	if w.Duration() != time.Hour {
		t.Errorf("Duration() = %s, want 1h", w.Duration())
	}
}

func TestWindow_ContainsAcrossZones(t *testing.T) {
	start := time.Date(2024, time.June, 21, 6, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.Add(time.Hour)}
	// Same instant as the UTC start, expressed in UTC+2.
	other := start.In(time.FixedZone("CEST", 2*60*60))
	if !w.Contains(other) {
		t.Error("Contains should compare instants, not wall clocks")
	}
}

func TestWindows_Containing(t *testing.T) {
	ws := Flat{Margin: 90 * time.Minute}.Windows(sampleEvents())
	cases := []struct {
		name string
		t    time.Time
		want string
	}{
		{"at_sunrise", sampleEvents().Sunrise, SunriseWindow},
		{"at_sunset", sampleEvents().Sunset, SunsetWindow},
		{"midday", time.Date(2024, time.June, 21, 13, 0, 0, 0, time.UTC), ""},
		{"midnight", time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ws.Containing(tc.t); got != tc.want {
				t.Errorf("Containing = %q, want %q", got, tc.want)
			}
		})
	}
}

// ---------- Policies ----------

func TestTwilight_Windows(t *testing.T) {
	ev := sampleEvents()
	ws := Twilight{Pad: time.Hour}.Windows(ev)

	wantSunriseStart := time.Date(2024, time.June, 21, 4, 20, 0, 0, time.UTC) // dawn − 1h
	wantSunriseEnd := time.Date(2024, time.June, 21, 7, 40, 0, 0, time.UTC)   // sunrise + 40m + 1h
	wantSunsetStart := time.Date(2024, time.June, 21, 18, 30, 0, 0, time.UTC) // sunset − 30m − 1h
	wantSunsetEnd := time.Date(2024, time.June, 21, 21, 30, 0, 0, time.UTC)   // dusk + 1h

	if !ws.Sunrise.Start.Equal(wantSunriseStart) {
		t.Errorf("sunrise start = %s, want %s", ws.Sunrise.Start, wantSunriseStart)
	}
	if !ws.Sunrise.End.Equal(wantSunriseEnd) {
		t.Errorf("sunrise end = %s, want %s", ws.Sunrise.End, wantSunriseEnd)
	}
	if !ws.Sunset.Start.Equal(wantSunsetStart) {
		t.Errorf("sunset start = %s, want %s", ws.Sunset.Start, wantSunsetStart)
	}
	if !ws.Sunset.End.Equal(wantSunsetEnd) {
		t.Errorf("sunset end = %s, want %s", ws.Sunset.End, wantSunsetEnd)
	}
	if (Twilight{}).Name() != PolicyTwilight {
		t.Errorf("Name() = %q", (Twilight{}).Name())
	}
}

func TestFlat_Windows(t *testing.T) {
	ev := sampleEvents()
	ws := Flat{Margin: 90 * time.Minute}.Windows(ev)

	if got := ws.Sunrise.Start; !got.Equal(ev.Sunrise.Add(-90 * time.Minute)) {
		t.Errorf("sunrise start = %s", got)
	}
	if got := ws.Sunrise.End; !got.Equal(ev.Sunrise.Add(90 * time.Minute)) {
		t.Errorf("sunrise end = %s", got)
	}
	if got := ws.Sunset.Start; !got.Equal(ev.Sunset.Add(-90 * time.Minute)) {
		t.Errorf("sunset start = %s", got)
	}
	if got := ws.Sunset.End; !got.Equal(ev.Sunset.Add(90 * time.Minute)) {
		t.Errorf("sunset end = %s", got)
	}
	if (Flat{}).Name() != PolicyFlat {
		t.Errorf("Name() = %q", (Flat{}).Name())
	}
}

func TestPolicies_WindowsDoNotOverlap(t *testing.T) {
	policies := []MarginPolicy{
		Twilight{Pad: time.Hour},
		Flat{Margin: 90 * time.Minute},
	}
	sites := []struct {
		name     string
		lat, lon float64
		zone     *time.Location
		day      time.Time
	}{
		{"london_midsummer", 51.5074, -0.1278, bst, at(bst, 2024, time.June, 21, 12, 0)},
		{"london_midwinter", 51.5074, -0.1278, time.UTC, at(time.UTC, 2024, time.December, 21, 12, 0)},
		{"equator_equinox", 0, 0, time.UTC, at(time.UTC, 2024, time.March, 20, 12, 0)},
		{"sydney_summer", -33.8688, 151.2093, aed, at(aed, 2024, time.January, 15, 12, 0)},
	}
	for _, p := range policies {
		for _, s := range sites {
			t.Run(p.Name()+"/"+s.name, func(t *testing.T) {
				ev, err := ComputeEvents(s.lat, s.lon, s.day, s.zone)
				if err != nil {
					t.Fatalf("ComputeEvents: %v", err)
				}
				ws := p.Windows(ev)
				if !ws.Sunrise.End.Before(ws.Sunset.Start) {
					t.Errorf("sunrise window ends %s, not before sunset window start %s",
						ws.Sunrise.End, ws.Sunset.Start)
				}
				if !ws.Sunrise.Contains(ev.Sunrise) || !ws.Sunset.Contains(ev.Sunset) {
					t.Error("windows should contain sunrise and sunset")
				}
			})
		}
	}
}

func TestParsePolicy(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    MarginPolicy
		wantErr bool
	}{
		{"twilight", "twilight", Twilight{Pad: time.Hour}, false},
		{"twilight_mixed_case", " Twilight ", Twilight{Pad: time.Hour}, false},
		{"flat", "flat", Flat{Margin: 90 * time.Minute}, false},
		{"unknown", "civil", nil, true},
		{"empty", "", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParsePolicy(tc.input, 90*time.Minute, time.Hour)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParsePolicy(%q) = %#v, want %#v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParsePolicy_NonPositiveMargins(t *testing.T) {
	if _, err := ParsePolicy(PolicyFlat, 0, time.Hour); err == nil {
		t.Error("expected error for zero flat margin")
	}
	if _, err := ParsePolicy(PolicyTwilight, time.Hour, -time.Minute); err == nil {
		t.Error("expected error for negative twilight pad")
	}
}

// ---------- Calculator ----------

func fixedZone(zone *time.Location) ZoneResolver {
	return ZoneFunc(func(string) (*time.Location, error) { return zone, nil })
}

func TestCalculator_Compute(t *testing.T) {
	calc := NewCalculator(Location{Latitude: 51.5074, Longitude: -0.1278, Timezone: "Europe/London"},
		fixedZone(bst), Flat{Margin: 90 * time.Minute})

	res := calc.Compute(at(bst, 2024, time.June, 21, 9, 0))
	if !res.Available() {
		t.Fatalf("expected windows, got error: %v", res.Err)
	}
	within(t, "sunrise", res.Events.Sunrise, at(bst, 2024, time.June, 21, 4, 43), 3*time.Minute)
	if got := res.Windows.Sunrise.Duration(); got != 3*time.Hour {
		t.Errorf("sunrise window = %s, want 3h", got)
	}
	if calc.Policy().Name() != PolicyFlat {
		t.Errorf("Policy() = %q", calc.Policy().Name())
	}
	if calc.Location().Timezone != "Europe/London" {
		t.Errorf("Location() = %+v", calc.Location())
	}
}

func TestCalculator_Defaults(t *testing.T) {
	calc := NewCalculator(Location{Timezone: "UTC"}, nil, nil)
	if _, ok := calc.Policy().(Twilight); !ok {
		t.Errorf("default policy = %T, want Twilight", calc.Policy())
	}
	res := calc.Compute(time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC))
	if !res.Available() {
		t.Fatalf("unexpected error: %v", res.Err)
	}
}

func TestCalculator_ZoneFailure(t *testing.T) {
	zoneErr := errors.New("no tzdata")
	calc := NewCalculator(Location{Timezone: "Mars/Olympus"},
		ZoneFunc(func(string) (*time.Location, error) { return nil, zoneErr }), nil)

	res := calc.Compute(time.Now())
	if res.Available() {
		t.Fatal("expected unavailable result")
	}
	if !errors.Is(res.Err, ErrComputation) {
		t.Errorf("error should wrap ErrComputation, got %v", res.Err)
	}
}

func TestCalculator_NilZone(t *testing.T) {
	calc := NewCalculator(Location{}, fixedZone(nil), nil)
	if res := calc.Compute(time.Now()); !errors.Is(res.Err, ErrComputation) {
		t.Errorf("expected ErrComputation, got %v", res.Err)
	}
}

func TestCalculator_InvalidLocation(t *testing.T) {
	calc := NewCalculator(Location{Latitude: 123, Longitude: 0}, fixedZone(time.UTC), nil)
	res := calc.Compute(time.Now())
	if res.Available() || !errors.Is(res.Err, ErrComputation) {
		t.Errorf("expected ErrComputation, got %v", res.Err)
	}
}

func TestSystemZones_Resolve(t *testing.T) {
	z := SystemZones{}
	for _, name := range []string{"", "Local", " Local "} {
		loc, err := z.Resolve(name)
		if err != nil || loc != time.Local {
			t.Errorf("Resolve(%q) = %v, %v; want time.Local", name, loc, err)
		}
	}
	if loc, err := z.Resolve("UTC"); err != nil || loc.String() != "UTC" {
		t.Errorf("Resolve(UTC) = %v, %v", loc, err)
	}
	if _, err := z.Resolve("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
