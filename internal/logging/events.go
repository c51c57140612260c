// Package logging provides output formatting and warning aggregation for ipsift.
package logging

import "time"

// EventType identifies the kind of recoverable problem seen during a run.
type EventType int

const (
	// EventSourceFailed is an exclusion source that could not be read.
	EventSourceFailed EventType = iota
	// EventInvalidToken is a malformed address or CIDR in an exclusion source.
	EventInvalidToken
	// EventInvalidInput is a malformed line in the candidate input.
	EventInvalidInput
	// EventCandidateError is a candidate whose lookup failed.
	EventCandidateError
)

// String returns the name used in the JSON report.
func (t EventType) String() string {
	switch t {
	case EventSourceFailed:
		return "source_failed"
	case EventInvalidToken:
		return "invalid_token"
	case EventInvalidInput:
		return "invalid_input"
	case EventCandidateError:
		return "candidate_error"
	default:
		return "unknown"
	}
}

// Event records one warning emitted during a run.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Source    string // origin name, optionally with "line N"
	Value     string // offending token or address
	Detail    string // error text
}

// IsParseEvent returns true if the event is a per-entry parse warning.
func (e *Event) IsParseEvent() bool {
	return e.Type == EventInvalidToken || e.Type == EventInvalidInput
}
