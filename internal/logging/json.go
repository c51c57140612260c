package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunReport is the top-level structure of the filter JSON report.
type RunReport struct {
	Run      RunInfo         `json:"run"`
	Sources  []SourceEntry   `json:"sources"`
	Excluded []ExcludedEntry `json:"excluded"`
	Warnings []WarningEntry  `json:"warnings"`
	Summary  SummaryInfo     `json:"summary"`
}

// RunInfo holds metadata about one filter run.
type RunInfo struct {
	ID           string    `json:"id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	DurationSecs float64   `json:"duration_seconds"`
	Input        string    `json:"input"`
	InputFormat  string    `json:"input_format"`
	Output       string    `json:"output"`
}

// SourceEntry describes what one exclusion source contributed.
type SourceEntry struct {
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	Tokens    int    `json:"tokens"`
	Addresses int    `json:"addresses"`
	Ranges    int    `json:"ranges"`
	Invalid   int    `json:"invalid"`
	Error     string `json:"error,omitempty"`
}

// ExcludedEntry is one excluded candidate and its reason.
type ExcludedEntry struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
	Source  string `json:"source,omitempty"`
}

// WarningEntry is one recorded warning.
type WarningEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Value     string    `json:"value,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// SummaryInfo holds summary statistics for the report.
type SummaryInfo struct {
	IndexAddresses int            `json:"index_addresses"`
	IndexRanges    int            `json:"index_ranges"`
	InvalidEntries int            `json:"invalid_entries"`
	Candidates     int            `json:"candidates"`
	Excluded       int            `json:"excluded"`
	Kept           int            `json:"kept"`
	ByReason       map[string]int `json:"excluded_by_reason"`
}

// BuildRunReport constructs a RunReport from run info, per-source stats,
// exclusion decisions and the recorded warnings.
func BuildRunReport(run RunInfo, sources []SourceEntry, excluded []ExcludedEntry, events []Event, summary SummaryInfo) RunReport {
	warnings := make([]WarningEntry, 0, len(events))
	for _, ev := range events {
		if ev.IsParseEvent() {
			summary.InvalidEntries++
		}
		warnings = append(warnings, WarningEntry{
			Timestamp: ev.Timestamp,
			Type:      ev.Type.String(),
			Source:    ev.Source,
			Value:     ev.Value,
			Detail:    ev.Detail,
		})
	}

	if sources == nil {
		sources = []SourceEntry{}
	}
	if excluded == nil {
		excluded = []ExcludedEntry{}
	}
	if summary.ByReason == nil {
		summary.ByReason = map[string]int{}
	}

	return RunReport{
		Run:      run,
		Sources:  sources,
		Excluded: excluded,
		Warnings: warnings,
		Summary:  summary,
	}
}

// WriteJSON writes v as indented JSON to path atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return WriteFileAtomic(path, data)
}

// writeFile is swapped in tests to simulate a failing disk.
var writeFile = os.WriteFile

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, falling back to a direct write when rename fails.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpPath := path + ".tmp"

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := writeFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Fallback: if rename fails (e.g., cross-device), just write directly
		os.Remove(tmpPath)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	return nil
}
