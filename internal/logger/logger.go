// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). The logger is safe for concurrent use.
//
// Named returns a child logger for one component. Children share the
// root's level, so SetLevel on any of them changes all of them.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// ParseLevel maps a config value to a Level. Unknown values are normal.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "quiet", "none":
		return LevelOff
	case "verbose", "debug":
		return LevelVerbose
	default:
		return LevelNormal
	}
}

type levelVar struct {
	mu    sync.RWMutex
	level Level
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	lv     *levelVar
	prefix string
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	errLog *log.Logger
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	flags := log.Ltime

	return &Logger{
		lv:     &levelVar{level: level},
		debug:  log.New(out, "[DBG] ", flags),
		info:   log.New(out, "[INF] ", flags),
		warn:   log.New(out, "[WRN] ", flags),
		errLog: log.New(out, "[ERR] ", flags),
	}
}

// Named returns a child logger that prefixes every line with the component
// name. Nesting joins names with a dot.
func (l *Logger) Named(component string) *Logger {
	child := *l
	if l.prefix == "" {
		child.prefix = component
	} else {
		child.prefix = l.prefix + "." + component
	}
	return &child
}

// SetLevel changes the log level at runtime.
func (l *Logger) SetLevel(level Level) {
	l.lv.mu.Lock()
	defer l.lv.mu.Unlock()
	l.lv.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	l.lv.mu.RLock()
	defer l.lv.mu.RUnlock()
	return l.lv.level
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	if l.GetLevel() >= LevelVerbose {
		l.debug.Output(2, l.format(format, args))
	}
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.info.Output(2, l.format(format, args))
	}
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.warn.Output(2, l.format(format, args))
	}
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.errLog.Output(2, l.format(format, args))
	}
}

func (l *Logger) format(format string, args []any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix == "" {
		return msg
	}
	return l.prefix + ": " + msg
}
