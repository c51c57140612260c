package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuildRunReport(t *testing.T) {
	run := RunInfo{
		ID:        "a3f8",
		StartTime: time.Now(),
		EndTime:   time.Now().Add(2 * time.Second),
		Input:     "ips.txt",
		Output:    "out.txt",
	}

	events := []Event{
		{Timestamp: time.Now(), Type: EventInvalidToken, Source: "local-file line 3", Value: "not-an-ip", Detail: "bad"},
		{Timestamp: time.Now(), Type: EventSourceFailed, Source: "tor-exit-nodes", Detail: "timeout"},
	}

	report := BuildRunReport(run, []SourceEntry{{Name: "static", Ranges: 1}},
		[]ExcludedEntry{{Address: "10.0.0.1", Reason: "range 10.0.0.0/8"}},
		events, SummaryInfo{Candidates: 3, Excluded: 1, Kept: 2})

	if len(report.Warnings) != 2 {
		t.Fatalf("Warnings count = %d, want 2", len(report.Warnings))
	}
	if report.Warnings[0].Type != "invalid_token" || report.Warnings[1].Type != "source_failed" {
		t.Errorf("unexpected warning types: %+v", report.Warnings)
	}
	if report.Summary.InvalidEntries != 1 {
		t.Errorf("InvalidEntries = %d, want 1", report.Summary.InvalidEntries)
	}
	if report.Run.ID != "a3f8" {
		t.Errorf("Run.ID = %q, want a3f8", report.Run.ID)
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	if len(data) == 0 {
		t.Error("JSON output is empty")
	}
}

func TestBuildRunReport_Empty(t *testing.T) {
	report := BuildRunReport(RunInfo{ID: "test"}, nil, nil, nil, SummaryInfo{})

	if report.Sources == nil || report.Excluded == nil || report.Warnings == nil {
		t.Error("slices should be non-nil so they marshal as []")
	}
	if report.Summary.ByReason == nil {
		t.Error("ByReason should be non-nil")
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.json")

	if err := WriteJSON(path, RunReport{Run: RunInfo{ID: "test"}}); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}

	var parsed RunReport
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshaling written JSON: %v", err)
	}
	if parsed.Run.ID != "test" {
		t.Errorf("Run.ID = %q, want test", parsed.Run.ID)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Error("temporary file left behind")
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("old contents\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("new\n")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new\n" {
		t.Errorf("file = %q, want %q", data, "new\n")
	}
}

func TestWriteFileAtomicFailureLeavesNoTemp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := os.WriteFile(path, []byte("previous\n"), 0644); err != nil {
		t.Fatal(err)
	}

	orig := writeFile
	defer func() { writeFile = orig }()
	writeFile = func(name string, data []byte, perm os.FileMode) error {
		// Half the data lands before the device fills up.
		if err := os.WriteFile(name, data[:len(data)/2], perm); err != nil {
			return err
		}
		return errors.New("no space left on device")
	}

	if err := WriteFileAtomic(path, []byte("replacement\n")); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "previous\n" {
		t.Errorf("file = %q, want it untouched", data)
	}
}
