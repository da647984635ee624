package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/cjeanneret/SunSnap/internal/config"
	"github.com/cjeanneret/SunSnap/internal/debug"
	"github.com/cjeanneret/SunSnap/internal/logic/allowlist"
	"github.com/cjeanneret/SunSnap/internal/logic/cadence"
	"github.com/cjeanneret/SunSnap/internal/logic/solar"
	"github.com/cjeanneret/SunSnap/internal/metrics"
	"github.com/cjeanneret/SunSnap/internal/web"
)

var defaultConfigPath = filepath.Join("configs", "default.yaml")

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", defaultConfigPath, "path to config file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	camera := flag.String("camera", "", "camera name to check against the allow-list")
	source := flag.String("type", string(cadence.SourceRTSP), "snapshot source type (rtsp, api)")
	lastSnap := flag.Float64("last", 0, "last snapshot time in seconds since the epoch (0 = never)")
	nowFlag := flag.String("now", "", "evaluate at this RFC3339 time instead of the wall clock")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*cfgPath, *cfgPath == defaultConfigPath, *envPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	clock, err := clockFromFlag(*nowFlag)
	if err != nil {
		log.Fatalf("invalid -now: %v", err)
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Summary("SunSnap snapshot cadence")
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Location", cfg.Location)
	debug.PrintStruct("Snapshot", cfg.Snapshot)

	a, err := newApp(cfg, clock)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	if port := webPort.port(); port > 0 {
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		srv := web.NewServer(fmt.Sprintf(":%d", port), web.Deps{
			Broadcaster: broadcaster,
			Windows:     a.calc,
			Decider:     a.decider,
			AllowList:   a.allow,
			Clock:       clock,
			Config:      configView(cfg, a.allow),
		})
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	a.report(os.Stdout, *camera, cadence.SourceType(*source), cadence.LastSnapFromUnix(*lastSnap))
}

// app bundles the decision components built from one configuration.
type app struct {
	calc    *solar.Calculator
	decider *cadence.Decider
	allow   allowlist.AllowList
	clock   cadence.Clock
}

func newApp(cfg *config.Config, clock cadence.Clock) (*app, error) {
	policy, err := solar.ParsePolicy(cfg.Snapshot.MarginPolicy, cfg.FlatMargin(), cfg.TwilightPad())
	if err != nil {
		return nil, fmt.Errorf("margin policy: %w", err)
	}
	calc := solar.NewCalculator(solar.Location{
		Latitude:  cfg.Location.Latitude,
		Longitude: cfg.Location.Longitude,
		Timezone:  cfg.Location.Timezone,
	}, solar.SystemZones{}, policy)

	return &app{
		calc: calc,
		decider: cadence.NewDecider(calc, clock, cadence.Config{
			DefaultInterval: cfg.Interval(),
			WindowInterval:  cfg.WindowInterval(),
		}),
		allow: allowlist.New(cfg.Snapshot.Cameras),
		clock: clock,
	}, nil
}

// report prints today's windows and the decision for one camera.
func (a *app) report(w io.Writer, camera string, source cadence.SourceType, last time.Time) {
	now := a.clock.Now()
	res := a.calc.Compute(now)

	fmt.Fprintf(w, "now:      %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(w, "policy:   %s\n", a.calc.Policy().Name())
	if res.Available() {
		ev := res.Events
		fmt.Fprintf(w, "events:   dawn %s  sunrise %s  sunset %s  dusk %s\n",
			clockTime(ev.Dawn), clockTime(ev.Sunrise), clockTime(ev.Sunset), clockTime(ev.Dusk))
		for _, nw := range []struct {
			name string
			w    solar.Window
		}{{solar.SunriseWindow, res.Windows.Sunrise}, {solar.SunsetWindow, res.Windows.Sunset}} {
			fmt.Fprintf(w, "%-9s %s → %s (%s)\n", nw.name+":", clockTime(nw.w.Start), clockTime(nw.w.End), nw.w.Duration())
		}
		debug.Window(solar.SunriseWindow, res.Windows.Sunrise.Start, res.Windows.Sunrise.End)
		debug.Window(solar.SunsetWindow, res.Windows.Sunset.Start, res.Windows.Sunset.End)
	} else {
		fmt.Fprintf(w, "windows:  unavailable (%v)\n", res.Err)
	}

	if a.allow.ShouldSkip(camera) {
		metrics.ObserveCameraSkip()
		fmt.Fprintf(w, "camera:   %q not in allow-list, skipped\n", camera)
		return
	}

	dec := a.decider.Decide(source, last)
	window := dec.Window
	if window == "" {
		window = "none"
	}
	fmt.Fprintf(w, "decision: take=%t source=%s interval=%s elapsed=%s window=%s fallback=%t\n",
		dec.Take, source, dec.Interval, dec.Elapsed.Round(time.Second), window, dec.Fallback)
}

func clockTime(t time.Time) string { return t.Format("15:04:05") }

// loadConfig layers the YAML file, the .env file and the environment.
// A missing file is tolerated only when optional is set.
func loadConfig(path string, optional bool, envPath string) (*config.Config, error) {
	cfg := config.Default()

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := config.ValidateConfigPath(path); err != nil {
			return nil, err
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case errors.Is(statErr, fs.ErrNotExist) && optional:
		// built-in defaults
	default:
		return nil, fmt.Errorf("config file: %w", statErr)
	}

	if err := config.LoadDotEnv(envPath); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// clockFromFlag returns a fixed clock for a non-empty RFC3339 value.
func clockFromFlag(s string) (cadence.Clock, error) {
	if s == "" {
		return cadence.SystemClock{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return cadence.ClockFunc(func() time.Time { return t }), nil
}

func configView(cfg *config.Config, allow allowlist.AllowList) web.ConfigView {
	return web.ConfigView{
		Location: solar.Location{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
			Timezone:  cfg.Location.Timezone,
		},
		IntervalSec:       cfg.Snapshot.IntervalSec,
		WindowIntervalSec: cfg.Snapshot.WindowIntervalSec,
		MarginPolicy:      cfg.Snapshot.MarginPolicy,
		Cameras:           allow.Names(),
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
