// Package logs is the node's own reconstruction of the teacher's logs
// backend (github.com/daglabs/btcd/logs), which logger.go in the teacher
// tree imports but which did not itself survive retrieval. It keeps the
// same shape observed there — a shared Backend writing to per-subsystem
// Loggers gated by an independent Level — since that shape is what
// this package and the subsystem wiring below are grounded on.
package logs

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger writes leveled, tagged messages to its Backend.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})
	SetLevel(level Level)
	Level() Level
}

// BackendWriter receives formatted log lines at or above a minimum level.
type BackendWriter struct {
	w        io.Writer
	minLevel Level
}

// NewAllLevelsBackendWriter wraps w to receive every level.
func NewAllLevelsBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{w: w, minLevel: LevelTrace}
}

// NewErrorBackendWriter wraps w to receive only Error and Critical lines,
// the teacher's split between the main log file and an error-only file.
func NewErrorBackendWriter(w io.Writer) *BackendWriter {
	return &BackendWriter{w: w, minLevel: LevelError}
}

// Backend fans a formatted line out to every writer whose threshold it
// meets, and mints tagged Logger handles sharing that fan-out.
type Backend struct {
	writers []*BackendWriter
}

// NewBackend constructs a Backend writing to the given writers.
func NewBackend(writers []*BackendWriter) *Backend {
	return &Backend{writers: writers}
}

// Logger mints a tagged logger backed by b, defaulting to LevelInfo.
func (b *Backend) Logger(tag string) Logger {
	return &subsystemLogger{backend: b, tag: tag, level: LevelInfo}
}

type subsystemLogger struct {
	mu      sync.RWMutex
	backend *Backend
	tag     string
	level   Level
}

func (l *subsystemLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *subsystemLogger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *subsystemLogger) log(level Level, format string, args []interface{}) {
	l.mu.RLock()
	threshold := l.level
	l.mu.RUnlock()
	if level < threshold {
		return
	}
	line := fmt.Sprintf("%s [%s] %s %s\n",
		time.Now().UTC().Format("2006-01-02 15:04:05.000"),
		levelTag(level), l.tag, fmt.Sprintf(format, args...))
	for _, w := range l.backend.writers {
		if level >= w.minLevel {
			_, _ = w.w.Write([]byte(line))
		}
	}
}

func levelTag(l Level) string {
	switch l {
	case LevelTrace:
		return "TRC"
	case LevelDebug:
		return "DBG"
	case LevelInfo:
		return "INF"
	case LevelWarn:
		return "WRN"
	case LevelError:
		return "ERR"
	case LevelCritical:
		return "CRT"
	default:
		return "OFF"
	}
}

func (l *subsystemLogger) Tracef(format string, args ...interface{})    { l.log(LevelTrace, format, args) }
func (l *subsystemLogger) Debugf(format string, args ...interface{})    { l.log(LevelDebug, format, args) }
func (l *subsystemLogger) Infof(format string, args ...interface{})     { l.log(LevelInfo, format, args) }
func (l *subsystemLogger) Warnf(format string, args ...interface{})     { l.log(LevelWarn, format, args) }
func (l *subsystemLogger) Errorf(format string, args ...interface{})    { l.log(LevelError, format, args) }
func (l *subsystemLogger) Criticalf(format string, args ...interface{}) { l.log(LevelCritical, format, args) }
