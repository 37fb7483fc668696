// Package util provides low-level helpers shared by all other packages.
package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

func (l LogLevel) String() string {
	switch l {
	case LogQuiet:
		return "quiet"
	case LogNormal:
		return "normal"
	case LogVerbose:
		return "verbose"
	case LogDebug:
		return "debug"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  A nil *Logger discards everything, so optional
// loggers need no checks at the call site.
type Logger struct {
	level      LogLevel
	output     io.Writer
	mu         sync.Mutex
	timestamps bool // prepend HH:MM:SS.mmm
	raw        bool // terminal in raw mode: end lines with CRLF
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	return &Logger{
		level:      LogLevel(verbosity),
		output:     os.Stderr,
		timestamps: verbosity >= int(LogDebug),
	}
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.timestamps = on
	l.mu.Unlock()
}

// SetRaw switches line endings to CRLF while the local terminal is in
// raw mode, where a bare LF no longer returns the carriage.
func (l *Logger) SetRaw(on bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.raw = on
	l.mu.Unlock()
}

// SetOutput overrides the output writer (default: os.Stderr).
func (l *Logger) SetOutput(w io.Writer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.output = w
	l.mu.Unlock()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	if l == nil {
		return LogQuiet
	}
	return l.level
}

// Enabled reports whether messages at level are printed.
func (l *Logger) Enabled(level LogLevel) bool {
	return l != nil && l.level >= level
}

// Error always prints, except on a nil Logger.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(LogQuiet, "ERR", format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(LogNormal, "WRN", format, args...)
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(LogNormal, "INF", format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.logf(LogVerbose, "VRB", format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(LogDebug, "DBG", format, args...)
}

func (l *Logger) logf(level LogLevel, tag, format string, args ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")

	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	if l.timestamps {
		b.WriteString(time.Now().Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	b.WriteString("[" + tag + "] ")
	if l.raw {
		b.WriteString(strings.ReplaceAll(msg, "\n", "\r\n"))
		b.WriteString("\r\n")
	} else {
		b.WriteString(msg)
		b.WriteByte('\n')
	}
	io.WriteString(l.output, b.String()) //nolint:errcheck
}
