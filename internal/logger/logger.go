// Package logger defines the logging seam shared by the executor and the
// root command. Packages log through the interface; callers decide whether
// those lines go to the terminal, a test buffer, or nowhere.
package logger

import (
	"fmt"
	"log"
	"os"
)

// debugEnv enables Debug output when set to any non-empty value. The
// --verbose CLI flag sets it before the tree is built.
const debugEnv = "KITIPY_DEBUG"

// Logger is the printf-style logging interface threaded through the
// executor and the root command.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NewEnvLogger returns the default terminal logger: Info and above always
// print, Debug only when KITIPY_DEBUG is set. The prefix tags every line
// (e.g. "[exec]").
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

type envLogger struct {
	prefix string
}

func (l *envLogger) printf(tag, format string, args ...interface{}) {
	line := l.prefix
	if line != "" {
		line += " "
	}
	if tag != "" {
		line += tag + " "
	}
	log.Printf(line+format, args...)
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if os.Getenv(debugEnv) != "" {
		l.printf("", format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	l.printf("", format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	l.printf("WARN:", format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	l.printf("ERROR:", format, args...)
}

// Noop returns a logger that discards everything. Tests that don't care
// about log output inject it to keep the test run quiet.
func Noop() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Info(format string, args ...interface{})  {}
func (noopLogger) Warn(format string, args ...interface{})  {}
func (noopLogger) Error(format string, args ...interface{}) {}

// LogMessage is one line captured by a BufferLogger.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger records every line instead of printing, so tests can assert
// on what was logged. Debug lines are always captured, regardless of the
// environment.
type BufferLogger struct {
	Messages []LogMessage
}

func NewBufferLogger() *BufferLogger {
	return &BufferLogger{}
}

func (l *BufferLogger) capture(level, format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) {
	l.capture("debug", format, args...)
}

func (l *BufferLogger) Info(format string, args ...interface{}) {
	l.capture("info", format, args...)
}

func (l *BufferLogger) Warn(format string, args ...interface{}) {
	l.capture("warn", format, args...)
}

func (l *BufferLogger) Error(format string, args ...interface{}) {
	l.capture("error", format, args...)
}

// HasLevel reports whether any line was captured at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear drops the captured lines.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}
