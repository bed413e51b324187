// Package test holds helpers shared by the package tests.
package test

import (
	"fmt"
	"strings"
	"sync"
)

// Log levels recorded by Logger.
const (
	LevelCritical = "CRITICAL"
	LevelError    = "ERROR"
	LevelWarning  = "WARN"
	LevelNotice   = "NOTICE"
	LevelDebug    = "DEBUG"
)

// Logger records log lines in memory. It satisfies core.Logger and the
// narrower logger interfaces of the adapters.
type Logger struct {
	mu       sync.RWMutex
	messages []LogEntry
}

// LogEntry represents a single log message with its level
type LogEntry struct {
	Level   string
	Message string
}

// NewTestLogger creates a new test logger
func NewTestLogger() *Logger {
	return &Logger{messages: make([]LogEntry, 0)}
}

func (l *Logger) Criticalf(s string, v ...any) { l.log(LevelCritical, s, v...) }
func (l *Logger) Errorf(s string, v ...any)    { l.log(LevelError, s, v...) }
func (l *Logger) Warningf(s string, v ...any)  { l.log(LevelWarning, s, v...) }
func (l *Logger) Noticef(s string, v ...any)   { l.log(LevelNotice, s, v...) }
func (l *Logger) Debugf(s string, v ...any)    { l.log(LevelDebug, s, v...) }

func (l *Logger) log(level, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)

	l.mu.Lock()
	l.messages = append(l.messages, LogEntry{Level: level, Message: msg})
	l.mu.Unlock()
}

// GetMessages returns all logged messages
func (l *Logger) GetMessages() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LogEntry, len(l.messages))
	copy(result, l.messages)
	return result
}

// HasMessage checks if a message containing the substring was logged at any level
func (l *Logger) HasMessage(substr string) bool {
	return l.has("", substr)
}

// HasError checks if an error containing the substring was logged
func (l *Logger) HasError(substr string) bool {
	return l.has(LevelError, substr)
}

// HasWarning checks if a warning containing the substring was logged
func (l *Logger) HasWarning(substr string) bool {
	return l.has(LevelWarning, substr)
}

// HasNotice checks if a notice containing the substring was logged
func (l *Logger) HasNotice(substr string) bool {
	return l.has(LevelNotice, substr)
}

func (l *Logger) has(level, substr string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, entry := range l.messages {
		if (level == "" || entry.Level == level) && strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

// Contains reports whether substr appears in any message. Use it to assert
// that secrets never reach the log.
func (l *Logger) Contains(substr string) bool {
	return l.HasMessage(substr)
}

// Clear clears all logged messages
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}

// MessageCount returns the number of logged messages
func (l *Logger) MessageCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// ErrorCount returns the number of error messages
func (l *Logger) ErrorCount() int {
	return l.count(LevelError)
}

// WarningCount returns the number of warning messages
func (l *Logger) WarningCount() int {
	return l.count(LevelWarning)
}

func (l *Logger) count(level string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	for _, entry := range l.messages {
		if entry.Level == level {
			n++
		}
	}
	return n
}
