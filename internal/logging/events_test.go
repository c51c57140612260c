package logging

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestEventLogCount(t *testing.T) {
	el := NewEventLog()
	el.Add(Event{Type: EventInvalidToken})
	el.Add(Event{Type: EventInvalidToken})
	el.Add(Event{Type: EventSourceFailed})

	if got := el.Count(EventInvalidToken); got != 2 {
		t.Errorf("Count(invalid_token) = %d, want 2", got)
	}
	if got := el.Count(EventCandidateError); got != 0 {
		t.Errorf("Count(candidate_error) = %d, want 0", got)
	}
	for _, ev := range el.GetEvents() {
		if ev.Timestamp.IsZero() {
			t.Error("event was not timestamped")
		}
	}
}

func TestEventLogConcurrentAdd(t *testing.T) {
	el := NewEventLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			el.Add(Event{Type: EventSourceFailed})
		}()
	}
	wg.Wait()
	if n := len(el.GetEvents()); n != 50 {
		t.Errorf("got %d events, want 50", n)
	}
}

func TestEventIsParseEvent(t *testing.T) {
	tests := []struct {
		typ  EventType
		want bool
	}{
		{EventInvalidToken, true},
		{EventInvalidInput, true},
		{EventSourceFailed, false},
		{EventCandidateError, false},
	}
	for _, tt := range tests {
		ev := Event{Type: tt.typ}
		if got := ev.IsParseEvent(); got != tt.want {
			t.Errorf("%s.IsParseEvent() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestLoggerWarningsSurviveQuiet(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, true, false)

	l.Info("hidden")
	l.Debug("hidden")
	l.InvalidToken("local-file line 3", "not-an-ip", errors.New("bad"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("quiet logger printed info: %q", out)
	}
	if !strings.Contains(out, `[ipsift] Warning: invalid IP/CIDR in local-file line 3: "not-an-ip"`) {
		t.Errorf("warning missing: %q", out)
	}
	if l.Events().Count(EventInvalidToken) != 1 {
		t.Error("warning was not recorded")
	}
}

func TestLoggerVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, false, true)
	l.Debug("value %d", 42)
	if !strings.Contains(buf.String(), "[ipsift] DEBUG: value 42") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestLoggerFilterSummary(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, false, false)
	l.FilterSummary(5, 3, 2, map[string]int{"range": 2, "listed address": 1})

	out := buf.String()
	if !strings.Contains(out, "Filtered 5 candidates: 3 excluded, 2 remain") {
		t.Errorf("summary missing: %q", out)
	}
	if !strings.Contains(out, "by reason: listed address ×1, range ×2") {
		t.Errorf("reasons not sorted: %q", out)
	}
}

func TestLoggerTeeToFile(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, false, false)
	path := filepath.Join(t.TempDir(), "logs", "ipsift.log")
	if err := l.TeeToFile(path); err != nil {
		t.Fatal(err)
	}
	l.Info("hello")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Error("stderr copy missing")
	}
}
