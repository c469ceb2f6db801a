// Package logger holds the process-wide zerolog logger.
//
// Call Init once from main, then Get (or Component for a sub-logger
// tagged with a component name) from anywhere else.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger built by Init.
type Options struct {
	// Level is the minimum level emitted: trace, debug, info, warn or
	// error. Anything else falls back to info.
	Level string
	// Console switches from JSON lines to the human-readable console
	// writer. Leave false in production.
	Console bool
	// Writer receives the log output. Defaults to os.Stdout.
	Writer io.Writer
}

var (
	mu   sync.Mutex
	root *zerolog.Logger
)

// Init builds the root logger. The first call wins; later calls return
// the existing logger unchanged.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		return *root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl := levelFor(opts.Level)
	zerolog.SetGlobalLevel(lvl)

	l := zerolog.New(w).Level(lvl).With().Timestamp().Caller().Logger()
	root = &l
	return l
}

// Get returns the root logger. Panics when Init has not run.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		panic("logger: Get before Init")
	}
	return *root
}

// Component returns the root logger tagged with a component field,
// e.g. "oauth" or "grades".
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Reset discards the root logger so the next Init rebuilds it. Test use only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	root = nil
}

func levelFor(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
