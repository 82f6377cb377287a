// Package logger builds the log/slog loggers used across ringaudit.
//
// Levels can be set per subsystem with a string such as
// "crawler=debug,adapter=warn,info": entries with "=" set one subsystem, a
// bare level sets the default. RINGAUDIT_LOG_LEVEL and RINGAUDIT_LOG_FORMAT
// override the configured values.
//
//	logs := logger.New(logger.Options{Levels: "crawler=debug,info"})
//	log := logs.Logger("crawler")
//	log.Debug("query", "addr", addr)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Environment overrides
const (
	EnvLevel  = "RINGAUDIT_LOG_LEVEL"
	EnvFormat = "RINGAUDIT_LOG_FORMAT"
)

// Options configure a Factory
type Options struct {
	// Levels is a level string, e.g. "info" or "crawler=debug,info"
	Levels string
	// Format is "text" (default) or "json"
	Format string
	// Output defaults to os.Stderr
	Output io.Writer
	// IgnoreEnv skips the environment overrides
	IgnoreEnv bool
}

// Factory hands out one logger per subsystem, all writing to one handler
type Factory struct {
	mu         sync.Mutex
	base       slog.Handler
	defaultLvl slog.Level
	levels     map[string]*slog.LevelVar
	overrides  map[string]slog.Level
}

// New creates a logger factory
func New(opts Options) *Factory {
	if !opts.IgnoreEnv {
		if v := os.Getenv(EnvLevel); v != "" {
			opts.Levels = v
		}
		if v := os.Getenv(EnvFormat); v != "" {
			opts.Format = v
		}
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	defaultLvl, overrides := ParseLevels(opts.Levels)

	// The base handler passes everything; subsystem handlers filter
	handlerOpts := &slog.HandlerOptions{Level: slog.LevelDebug}
	var base slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		base = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		base = slog.NewTextHandler(opts.Output, handlerOpts)
	}

	return &Factory{
		base:       base,
		defaultLvl: defaultLvl,
		levels:     make(map[string]*slog.LevelVar),
		overrides:  overrides,
	}
}

// Logger returns the logger for a subsystem
func (f *Factory) Logger(subsystem string) *slog.Logger {
	return slog.New(&levelHandler{
		Handler: f.base.WithAttrs([]slog.Attr{slog.String("subsystem", subsystem)}),
		level:   f.levelVar(subsystem),
	})
}

// SetLevel changes a subsystem's level, including loggers already handed out
func (f *Factory) SetLevel(subsystem string, level slog.Level) {
	f.levelVar(subsystem).Set(level)
}

func (f *Factory) levelVar(subsystem string) *slog.LevelVar {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lv, ok := f.levels[subsystem]; ok {
		return lv
	}
	lv := new(slog.LevelVar)
	if level, ok := f.overrides[subsystem]; ok {
		lv.Set(level)
	} else {
		lv.Set(f.defaultLvl)
	}
	f.levels[subsystem] = lv
	return lv
}

// ParseLevels parses a level string into a default level and per-subsystem
// overrides. Unknown level names are ignored; the default is info.
func ParseLevels(levels string) (slog.Level, map[string]slog.Level) {
	def := slog.LevelInfo
	overrides := make(map[string]slog.Level)

	for _, part := range strings.Split(levels, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if name, lvl, ok := strings.Cut(part, "="); ok {
			if level, ok := ParseLevel(strings.TrimSpace(lvl)); ok {
				overrides[strings.TrimSpace(name)] = level
			}
			continue
		}
		if level, ok := ParseLevel(part); ok {
			def = level
		}
	}
	return def, overrides
}

// ParseLevel parses a single level name
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Discard returns a logger that drops everything, for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// levelHandler filters records below a subsystem's level
type levelHandler struct {
	slog.Handler
	level *slog.LevelVar
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Handler.Enabled(ctx, level)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
