// Package logger owns the process-wide zerolog logger.
//
// Init builds it once at startup; components then derive tagged children
// with Component, optionally at their own level (LOG_COMPONENT_LEVELS).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// ComponentLevels overrides Level for named components, written as
	// comma-separated name=level pairs: "guard=warn,session=debug".
	ComponentLevels string
	// Pretty switches to coloured console output instead of JSON.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service is attached to every entry as "service" when set.
	Service string
}

var (
	mu        sync.RWMutex
	root      *zerolog.Logger
	overrides map[string]zerolog.Level
)

// Init builds the process logger. Only the first call has any effect; later
// calls return the logger already built.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		return *root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := parseLevel(opts.Level)
	levels, err := parseComponentLevels(opts.ComponentLevels)

	// The global level gates every logger, so it must admit the most
	// verbose override.
	floor := base
	for _, lvl := range levels {
		if lvl < floor {
			floor = lvl
		}
	}
	zerolog.SetGlobalLevel(floor)

	ctx := zerolog.New(out).Level(base).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	l := ctx.Logger()
	root = &l
	overrides = levels

	if err != nil {
		l.Warn().Err(err).Msg("ignoring malformed component levels")
	}
	return l
}

// Get returns the process logger. Panics if Init has not been called yet.
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		panic("logger: Get() called before Init()")
	}
	return *root
}

// Component returns a child logger tagged with name, at the level
// configured for that component if any.
func Component(name string) zerolog.Logger {
	l := Get().With().Str("component", name).Logger()

	mu.RLock()
	lvl, ok := overrides[name]
	mu.RUnlock()
	if ok {
		l = l.Level(lvl)
	}
	return l
}

// Sampled is Component limited to burst entries per period. Used on hot
// paths such as per-request guard redirects.
func Sampled(name string, burst uint32, period time.Duration) zerolog.Logger {
	return Component(name).Sample(&zerolog.BurstSampler{Burst: burst, Period: period})
}

// Reset drops the process logger so the next Init rebuilds it. Tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	root = nil
	overrides = nil
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// parseComponentLevels reads "name=level,..." and keeps every well-formed
// pair; the error lists the pairs it skipped.
func parseComponentLevels(spec string) (map[string]zerolog.Level, error) {
	levels := make(map[string]zerolog.Level)
	var bad []string
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, lvl, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(lvl) == "" {
			bad = append(bad, pair)
			continue
		}
		levels[name] = parseLevel(lvl)
	}
	if len(bad) > 0 {
		return levels, fmt.Errorf("logger: malformed component levels %q", bad)
	}
	return levels, nil
}
