// Package notify carries progress and result notifications from the core
// components to whatever front end is attached (CLI output, a UI bridge,
// or a test buffer). Every state transition in the pipeline, verification,
// and refund components produces exactly one notification.
package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one user-visible progress or result event.
type Notification struct {
	ID      string
	Level   Level
	Message string
}

// Sink consumes notifications. Implementations must be safe for use from
// a single producer goroutine; the components never notify concurrently.
type Sink interface {
	Notify(n Notification)
}

// New builds a Notification with a fresh correlation id.
func New(level Level, message string) Notification {
	return Notification{ID: uuid.NewString(), Level: level, Message: message}
}

// Info emits an info-level notification to the sink.
func Info(s Sink, message string) {
	if s != nil {
		s.Notify(New(LevelInfo, message))
	}
}

// Success emits a success-level notification to the sink.
func Success(s Sink, message string) {
	if s != nil {
		s.Notify(New(LevelSuccess, message))
	}
}

// Error emits an error-level notification to the sink.
func Error(s Sink, message string) {
	if s != nil {
		s.Notify(New(LevelError, message))
	}
}

// LogSink forwards notifications to a zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a Sink backed by the given logger.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "notifications").Logger()}
}

func (s *LogSink) Notify(n Notification) {
	switch n.Level {
	case LevelError:
		s.log.Error().Str("id", n.ID).Msg(n.Message)
	case LevelSuccess:
		s.log.Info().Str("id", n.ID).Str("result", "success").Msg(n.Message)
	default:
		s.log.Info().Str("id", n.ID).Msg(n.Message)
	}
}

// MemorySink buffers notifications for inspection, guarded for use from
// tests that observe asynchronous pipeline progress.
type MemorySink struct {
	mu    sync.Mutex
	items []Notification
}

// NewMemorySink creates an empty buffering sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
}

// All returns a copy of the buffered notifications in arrival order.
func (s *MemorySink) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Messages returns just the message strings in arrival order.
func (s *MemorySink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.items))
	for i, n := range s.items {
		out[i] = n.Message
	}
	return out
}

// MultiSink fans a notification out to several sinks.
type MultiSink []Sink

func (m MultiSink) Notify(n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}
