package middleware

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	QUIET
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "QUIET"
	}
}

// ParseLogLevel converts a level name into a LogLevel
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "quiet":
		return QUIET, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", level)
	}
}

// Logger writes leveled "[LEVEL] component: message" lines. It is safe for
// concurrent use.
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	level LogLevel
}

// NewLogger creates a logger writing to out
func NewLogger(out io.Writer, level LogLevel) *Logger {
	return &Logger{out: out, level: level}
}

// NopLogger discards everything
func NopLogger() *Logger {
	return NewLogger(io.Discard, QUIET)
}

// Enabled reports whether messages at level are written
func (l *Logger) Enabled(level LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level && level < QUIET
}

func (l *Logger) log(level LogLevel, component, message string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level || level >= QUIET {
		return
	}
	fmt.Fprintf(l.out, "[%s] %s: %s\n", level, component, fmt.Sprintf(message, args...))
}

// LogDebug logs a debug message
func (l *Logger) LogDebug(component, message string, args ...interface{}) {
	l.log(DEBUG, component, message, args...)
}

// LogInfo logs an info message
func (l *Logger) LogInfo(component, message string, args ...interface{}) {
	l.log(INFO, component, message, args...)
}

// LogWarn logs a warning message
func (l *Logger) LogWarn(component, message string, args ...interface{}) {
	l.log(WARN, component, message, args...)
}

// LogError logs an error message
func (l *Logger) LogError(component, message string, args ...interface{}) {
	l.log(ERROR, component, message, args...)
}
