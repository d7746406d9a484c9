// Package logging provides the leveled logger shared by every component.
//
// Output keeps the "LEVEL: message" prefix style of the standard log
// package; components tag their messages, e.g. "INFO: [wal] rotated".
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents the logging level.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel accepts error, warn, info or debug in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger is implemented by anything that can take leveled, formatted
// messages. Implementations must be safe for concurrent use.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// StdLogger writes through a standard library log.Logger.
type StdLogger struct {
	logger *log.Logger
	level  Level
}

// New creates a logger writing to w at the given level.
func New(w io.Writer, level Level) *StdLogger {
	return &StdLogger{logger: log.New(w, "", log.LstdFlags), level: level}
}

// NewDefault logs to stderr at info level.
func NewDefault() *StdLogger {
	return New(os.Stderr, LevelInfo)
}

// OpenFile appends log output to path. The returned file must be closed by
// the caller.
func OpenFile(path string, level Level) (*StdLogger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, level), f, nil
}

func (l *StdLogger) Level() Level { return l.level }

func (l *StdLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }
func (l *StdLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *StdLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *StdLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

func (l *StdLogger) logf(level Level, format string, args ...any) {
	if level > l.level {
		return
	}
	l.logger.Printf(level.String()+": "+format, args...)
}

type discardLogger struct{}

func (discardLogger) Errorf(string, ...any) {}
func (discardLogger) Warnf(string, ...any)  {}
func (discardLogger) Infof(string, ...any)  {}
func (discardLogger) Debugf(string, ...any) {}

// Discard drops every message.
var Discard Logger = discardLogger{}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
