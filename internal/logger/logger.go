// Package logger provides leveled logging for the marketscope daemon.
// It wraps the standard log package with level-based filtering so that
// per-provider fetch chatter can be silenced in production while keeping
// aggregation and alert-trigger events visible.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level
type Level int

const (
	// DebugLevel logs are voluminous (per-market transforms, per-request
	// provider calls) and usually disabled in production.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs recoverable problems, such as a single provider failing
	// during aggregation.
	WarnLevel
	// ErrorLevel logs are high-priority failures that need attention.
	ErrorLevel
)

// ParseLevel converts a config string into a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var (
	mu     sync.RWMutex
	level  = InfoLevel
	stdlog = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// Init configures the package logger from config values. A "text" format adds
// source file locations to each line.
func Init(levelName, format string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(levelName)

	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	stdlog = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stdlog.SetOutput(w)
}

func logf(at Level, tag, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level > at {
		return
	}
	_ = stdlog.Output(3, tag+fmt.Sprintf(format, args...))
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...any) {
	logf(DebugLevel, "[DEBUG] ", format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...any) {
	logf(InfoLevel, "[INFO] ", format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...any) {
	logf(WarnLevel, "[WARN] ", format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...any) {
	logf(ErrorLevel, "[ERROR] ", format, args...)
}

// Fatal logs a message and exits
func Fatal(format string, args ...any) {
	logf(ErrorLevel, "[FATAL] ", format, args...)
	os.Exit(1)
}
