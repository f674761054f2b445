// Package telemetry reports errors to an error-tracking side channel. Reports
// are fire-and-forget: a Reporter never blocks or fails the caller.
package telemetry

import (
	"sync"
	"time"

	"github.com/Skyrin/go-safar/e"
	"github.com/google/uuid"
)

// Level the severity of a reported event
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

// Event a reported error
type Event struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Level     Level             `json:"level"`
	Message   string            `json:"message"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// Reporter receives events. Implementations must not block for long and
// must not panic
type Reporter interface {
	Report(ev Event)
}

// NewEvent builds an event for the error
func NewEvent(err error, level Level, tags map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   e.Cause(err),
		Tags:      tags,
	}
}

// Capture reports the error through the reporter. A nil reporter drops it
func Capture(r Reporter, err error, level Level, tags map[string]string) {
	if r == nil || err == nil {
		return
	}

	r.Report(NewEvent(err, level, tags))
}

// Nop drops every event
type Nop struct{}

// Report implements Reporter
func (Nop) Report(Event) {}

// Multi fans an event out to several reporters
type Multi []Reporter

// Report implements Reporter
func (m Multi) Report(ev Event) {
	for _, r := range m {
		r.Report(ev)
	}
}

// Recorder keeps every reported event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report implements Reporter
func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}
