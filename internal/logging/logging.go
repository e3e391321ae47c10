// Package logging wraps the standard library's log.Logger with a level
// filter. The host repository favors plain fmt/log-based diagnostic
// printers gated by explicit flags (e.g. -debug) over a structured
// third-party logger; this package follows that precedent instead of
// introducing one.
package logging

import (
	"io"
	"log"
)

// Level is a diagnostic verbosity threshold.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// ParseLevel maps a CLI/env string to a Level. Unrecognized strings default
// to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	default:
		return LevelInfo
	}
}

// Logger is a leveled wrapper over log.Logger. The zero value is not usable;
// construct one with New.
type Logger struct {
	level Level
	log   *log.Logger
}

// New returns a Logger that writes to w, filtering out messages above level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, log: log.New(w, "", 0)}
}

func (l *Logger) logf(level Level, prefix, format string, args ...interface{}) {
	if l == nil || level > l.level {
		return
	}
	l.log.Printf(prefix+format, args...)
}

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, "error: ", format, args...)
}

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, "warn: ", format, args...)
}

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, "info: ", format, args...)
}

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, "debug: ", format, args...)
}
