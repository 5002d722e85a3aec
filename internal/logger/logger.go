// Package logger provides structured logging for kvgraph.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with kvgraph-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error, disabled
	Pretty     bool   // console output for terminals
	Output     io.Writer
	WithCaller bool
}

// ParseLevel maps a configured level name to a zerolog level. Unknown and
// empty names map to info.
func ParseLevel(name string) zerolog.Level {
	switch name {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger. Output defaults to stderr so command output on
// stdout stays machine readable.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", "kvgraph").
		Logger()
	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}
	return &Logger{zlog: zlog}
}

// Zerolog returns the underlying zerolog logger.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zlog
}

// Component returns a sub-logger tagged with a component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.zlog.With().Str("component", name).Logger()
}

var (
	mu     sync.RWMutex
	global = &Logger{zlog: zerolog.Nop()}
)

// Init installs the process-wide logger. Until Init is called library
// packages log nowhere.
func Init(cfg Config) *Logger {
	l := New(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
	log.Logger = l.zlog
	return l
}

// Global returns the process-wide logger.
func Global() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Component returns a sub-logger of the global logger. Callers fetch it per
// operation so a later Init takes effect.
func Component(name string) zerolog.Logger {
	return Global().Component(name)
}
