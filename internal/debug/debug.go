package debug

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (windows, failures)
	LevelLive    = 2 // Live info (every snapshot decision)
	LevelVerbose = 3 // Verbose (solar event details, config)
	LevelTrace   = 4 // Trace (ephemeris intermediate values)
)

const prefix = "[SunSnap] "

var (
	mu     sync.RWMutex
	level  int
	out    io.Writer = os.Stdout
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (today's windows, computation failures)
// 2 = live info (snapshot decisions)
// 3 = verbose (events, config values)
// 4 = trace (ephemeris internals)
func Init(debugLevel int) {
	mu.Lock()
	defer mu.Unlock()
	level = debugLevel
	logger = nil
	if level > LevelOff {
		logger = log.New(out, prefix, log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects log output, e.g. to tee lines into the web status stream.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return Level() >= minLevel
}

func printf(minLevel int, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if level >= minLevel && logger != nil {
		logger.Printf(format, args...)
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	printf(LevelInfo, "[INFO] "+format, args...)
}

// Summary prints a framed title (level 1).
func Summary(title string) {
	printf(LevelInfo, "═══════════════════════════════════════")
	printf(LevelInfo, "  %s", title)
	printf(LevelInfo, "═══════════════════════════════════════")
}

// Window prints a solar window with its bounds (level 1).
func Window(name string, start, end time.Time) {
	printf(LevelInfo, "[INFO] %s window: %s → %s (%s)",
		name, start.Format("15:04:05"), end.Format("15:04:05"), end.Sub(start).Round(time.Second))
}

// Failure prints a message followed by every error in the wrapped chain (level 1).
func Failure(msg string, err error) {
	if !IsEnabled(LevelInfo) {
		return
	}
	printf(LevelInfo, "[ERROR] %s: %v", msg, err)
	depth := 0
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		depth++
		printf(LevelInfo, "[ERROR] %scaused by: %v", strings.Repeat("  ", depth), e)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	printf(LevelLive, "[LIVE] "+format, args...)
}

// Decision prints the outcome of a snapshot cadence check (level 2).
func Decision(source string, take bool, elapsed, interval time.Duration, window string) {
	if window == "" {
		window = "none"
	}
	printf(LevelLive, "[LIVE] Snapshot %s: take=%t elapsed=%s interval=%s window=%s",
		source, take, elapsed.Round(time.Second), interval, window)
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	printf(LevelVerbose, "[VERBOSE] "+format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	printf(LevelVerbose, "[VERBOSE] %s: %+v", name, v)
}

// Section prints a section separator (level 3).
func Section(name string) {
	printf(LevelVerbose, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	printf(LevelVerbose, "  %s", name)
	printf(LevelVerbose, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	printf(LevelInfo, "[INFO]   %s = %v", name, value)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message.
func Trace(format string, args ...interface{}) {
	printf(LevelTrace, "[TRACE] "+format, args...)
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	printf(LevelInfo, "[ERROR] %v", err)
}
