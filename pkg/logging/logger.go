// Package logging writes structured JSONL events for the overlay daemon.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Category represents the subsystem generating the log.
type Category string

const (
	CategorySettings Category = "settings"
	CategoryModifier Category = "modifier"
	CategoryGesture  Category = "gesture"
	CategoryMessage  Category = "message"
	CategoryPanel    Category = "panel"
	CategoryStorage  Category = "storage"
	CategoryServer   Category = "server"
)

// Event represents a structured log event.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Category  Category       `json:"category"`
	EventType string         `json:"type"`
	Modifier  string         `json:"modifier,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Message   string         `json:"message,omitempty"`
}

// Logger writes structured events to a session log, mirroring errors into
// a dedicated error log.
type Logger struct {
	mu          sync.Mutex
	sessionFile *os.File
	errorFile   *os.File
	minLevel    Level
	discard     bool
}

// NewLogger creates a logger rooted at baseDir.
func NewLogger(baseDir string) (*Logger, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	sessionFile, err := os.OpenFile(
		filepath.Join(baseDir, "overlay.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open session log: %w", err)
	}

	errorFile, err := os.OpenFile(
		filepath.Join(baseDir, "errors.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0o644,
	)
	if err != nil {
		sessionFile.Close()
		return nil, fmt.Errorf("failed to open error log: %w", err)
	}

	return &Logger{
		sessionFile: sessionFile,
		errorFile:   errorFile,
		minLevel:    LevelInfo,
	}, nil
}

// NewNopLogger returns a logger that discards everything. Useful as the
// default in library code where logging is optional.
func NewNopLogger() *Logger {
	return &Logger{minLevel: LevelInfo, discard: true}
}

// SetMinLevel sets the minimum log level.
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Log writes an event to the appropriate destinations.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.discard {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if !l.shouldLog(event.Level) {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	if l.sessionFile != nil {
		if _, err := l.sessionFile.Write(data); err != nil {
			return fmt.Errorf("failed to write to session log: %w", err)
		}
	}
	if event.Level == LevelError && l.errorFile != nil {
		if _, err := l.errorFile.Write(data); err != nil {
			return fmt.Errorf("failed to write to error log: %w", err)
		}
	}
	return nil
}

func (l *Logger) shouldLog(level Level) bool {
	levels := map[Level]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.minLevel]
}

// Debug logs a debug event.
func (l *Logger) Debug(category Category, eventType, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelDebug, Category: category, EventType: eventType, Message: message, Details: details})
}

// Info logs an info event.
func (l *Logger) Info(category Category, eventType, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelInfo, Category: category, EventType: eventType, Message: message, Details: details})
}

// Warn logs a warning event.
func (l *Logger) Warn(category Category, eventType, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelWarn, Category: category, EventType: eventType, Message: message, Details: details})
}

// Error logs an error event.
func (l *Logger) Error(category Category, eventType, message string, details map[string]any) error {
	return l.Log(Event{Level: LevelError, Category: category, EventType: eventType, Message: message, Details: details})
}

// Close closes all log files.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	if l.sessionFile != nil {
		if err := l.sessionFile.Close(); err != nil {
			errs = append(errs, err)
		}
		l.sessionFile = nil
	}
	if l.errorFile != nil {
		if err := l.errorFile.Close(); err != nil {
			errs = append(errs, err)
		}
		l.errorFile = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing log files: %v", errs)
	}
	return nil
}
