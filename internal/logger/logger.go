// Package logger provides process-wide structured logging on top of log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// Level mirrors slog.Level with a small, stable vocabulary used throughout
// the codebase instead of importing slog directly everywhere.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls process-wide logger behavior.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output string // stdout, stderr
}

var (
	mu      sync.RWMutex
	base    *slog.Logger
	level   atomic.Int32
	initted atomic.Bool
)

func init() {
	level.Store(int32(LevelInfo))
	reconfigure("text", os.Stdout)
}

// Init applies a Config to the process-wide logger. Safe to call once at
// startup; subsequent calls reconfigure in place.
func Init(cfg Config) {
	lvl := parseLevel(cfg.Level)
	level.Store(int32(lvl))

	var w io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		w = os.Stderr
	}

	format := cfg.Format
	if format == "" {
		format = "text"
	}
	reconfigure(format, w)
	initted.Store(true)
}

func parseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func reconfigure(format string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{
		Level: levelVar(),
	}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	base = slog.New(h)
}

func levelVar() *slog.LevelVar {
	lv := &slog.LevelVar{}
	lv.Set(Level(level.Load()).slog())
	return lv
}

func logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug logs at debug level with structured key/value pairs.
func Debug(msg string, args ...any) { logger().Debug(msg, args...) }

// Info logs at info level with structured key/value pairs.
func Info(msg string, args ...any) { logger().Info(msg, args...) }

// Warn logs at warn level with structured key/value pairs.
func Warn(msg string, args ...any) { logger().Warn(msg, args...) }

// Error logs at error level with structured key/value pairs.
func Error(msg string, args ...any) { logger().Error(msg, args...) }

// WithContext returns a logger enriched with fields pulled from ctx's
// LogContext, if any, falling back to the bare process logger.
func WithContext(ctx context.Context) *slog.Logger {
	lc := FromContext(ctx)
	if lc == nil {
		return logger()
	}
	return logger().With(
		"request_id", lc.RequestID,
		"workspace_id", lc.WorkspaceID,
		"actor", lc.Actor,
	)
}
