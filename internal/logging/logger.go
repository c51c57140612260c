package logging

import (
	"sync"
	"time"
)

// EventLog collects warnings so they can be counted and written to the
// run report. It is safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// NewEventLog creates an empty EventLog.
func NewEventLog() *EventLog {
	return &EventLog{events: make([]Event, 0, 64)}
}

// Add appends an event, stamping it if it has no timestamp.
func (el *EventLog) Add(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	el.mu.Lock()
	el.events = append(el.events, ev)
	el.mu.Unlock()
}

// GetEvents returns a copy of all recorded events.
func (el *EventLog) GetEvents() []Event {
	el.mu.Lock()
	defer el.mu.Unlock()
	result := make([]Event, len(el.events))
	copy(result, el.events)
	return result
}

// Count returns how many events of type t were recorded.
func (el *EventLog) Count(t EventType) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	n := 0
	for _, ev := range el.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}
