package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
)

// parseLevel maps DEBUG / LOG_LEVEL values to a level. DEBUG wins when truthy.
func parseLevel(debug, level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(debug)) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func initLevel() {
	levelOnce.Do(func() {
		currentLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func logAt(level LogLevel, prefix, format string, args ...interface{}) {
	if GetLevel() <= level {
		log.Printf(prefix+format, args...)
	}
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logAt(LevelDebug, "[DEBUG] ", format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logAt(LevelInfo, "[INFO] ", format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logAt(LevelWarn, "[WARN] ", format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logAt(LevelError, "[ERROR] ", format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

// Printf is a pass-through to log.Printf for messages that should always print
func Printf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Scope prefixes every message with a fixed tag, typically a job id.
type Scope struct {
	tag string
}

// For returns a Scope whose messages are tagged with "[tag]".
func For(tag string) Scope {
	return Scope{tag: "[" + tag + "] "}
}

// Debug logs a tagged debug message
func (s Scope) Debug(format string, args ...interface{}) {
	logAt(LevelDebug, "[DEBUG] "+s.tag, format, args...)
}

// Info logs a tagged info message
func (s Scope) Info(format string, args ...interface{}) {
	logAt(LevelInfo, "[INFO] "+s.tag, format, args...)
}

// Warn logs a tagged warning
func (s Scope) Warn(format string, args ...interface{}) {
	logAt(LevelWarn, "[WARN] "+s.tag, format, args...)
}

// Error logs a tagged error
func (s Scope) Error(format string, args ...interface{}) {
	logAt(LevelError, "[ERROR] "+s.tag, format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
