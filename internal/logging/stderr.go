// Package logging provides output formatting for ipsift.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// StderrLogger provides formatted output to stderr.
type StderrLogger struct {
	out     io.Writer
	file    *lumberjack.Logger
	quiet   bool
	verbose bool
	events  *EventLog
}

// NewStderrLogger creates a new StderrLogger.
func NewStderrLogger(quiet, verbose bool) *StderrLogger {
	return NewLogger(os.Stderr, quiet, verbose)
}

// NewLogger creates a StderrLogger writing to out instead of os.Stderr.
func NewLogger(out io.Writer, quiet, verbose bool) *StderrLogger {
	return &StderrLogger{
		out:     out,
		quiet:   quiet,
		verbose: verbose,
		events:  NewEventLog(),
	}
}

// TeeToFile additionally writes every line to a size-rotated log file.
func (l *StderrLogger) TeeToFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	l.out = io.MultiWriter(l.out, l.file)
	return nil
}

// Close closes the rotated log file, if any.
func (l *StderrLogger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Events returns the log of recorded warnings.
func (l *StderrLogger) Events() *EventLog {
	return l.events
}

// Info logs an informational message.
func (l *StderrLogger) Info(format string, args ...interface{}) {
	if l.quiet {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[ipsift] %s\n", msg)
}

// Debug logs a debug message (only if verbose is enabled).
func (l *StderrLogger) Debug(format string, args ...interface{}) {
	if l.quiet || !l.verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[ipsift] DEBUG: %s\n", msg)
}

// Warn logs a warning. Warnings are printed even in quiet mode.
func (l *StderrLogger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[ipsift] Warning: %s\n", msg)
}

// Error logs an error message.
func (l *StderrLogger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "[ipsift] Error: %s\n", msg)
}

// Separator prints a visual separator line.
func (l *StderrLogger) Separator() {
	if l.quiet {
		return
	}
	fmt.Fprintln(l.out, "[ipsift] ───────────────────────────────────────────────")
}

// RunStart logs the start of a run.
func (l *StderrLogger) RunStart(runID, command string, start time.Time) {
	l.Info("Run %s (%s) started at %s", runID, command, start.Format(time.RFC3339))
}

// RunEnd logs the end of a run.
func (l *StderrLogger) RunEnd(runID string, duration time.Duration) {
	l.Separator()
	l.Info("Run %s finished in %.1fs", runID, duration.Seconds())
}

// SourceLoaded logs a per-origin summary after canonicalization.
func (l *StderrLogger) SourceLoaded(name string, addrs, ranges, invalid int) {
	l.Info("Source %s: %d addresses, %d ranges (%d invalid entries skipped)", name, addrs, ranges, invalid)
}

// SourceFailed logs a recoverable per-origin failure and records it.
func (l *StderrLogger) SourceFailed(name string, err error) {
	l.Warn("source %s unavailable, continuing without it: %v", name, err)
	l.events.Add(Event{Type: EventSourceFailed, Source: name, Detail: err.Error()})
}

// InvalidToken logs a malformed exclusion token and records it.
func (l *StderrLogger) InvalidToken(where, value string, err error) {
	value = clip(value)
	l.Warn("invalid IP/CIDR in %s: %q (%v)", where, value, err)
	l.events.Add(Event{Type: EventInvalidToken, Source: where, Value: value, Detail: err.Error()})
}

// InvalidInput logs a malformed candidate line and records it.
func (l *StderrLogger) InvalidInput(where, value string, err error) {
	value = clip(value)
	l.Warn("invalid IP address in %s: %q (%v)", where, value, err)
	l.events.Add(Event{Type: EventInvalidInput, Source: where, Value: value, Detail: err.Error()})
}

// CandidateError logs a candidate whose lookup failed and records it.
func (l *StderrLogger) CandidateError(addr string, err error) {
	l.Warn("lookup failed for %s, excluding it: %v", addr, err)
	l.events.Add(Event{Type: EventCandidateError, Value: addr, Detail: err.Error()})
}

// maxValueLen bounds offending values echoed in warnings.
const maxValueLen = 80

func clip(s string) string {
	if len(s) <= maxValueLen {
		return s
	}
	return s[:maxValueLen] + "..."
}

// IndexBuilt logs the finished exclusion index.
func (l *StderrLogger) IndexBuilt(summary string) {
	l.Separator()
	l.Info("Exclusion index: %s", summary)
}

// FilterSummary logs the classification outcome.
func (l *StderrLogger) FilterSummary(candidates, excluded, kept int, reasons map[string]int) {
	l.Separator()
	l.Info("Filtered %d candidates: %d excluded, %d remain", candidates, excluded, kept)
	if len(reasons) == 0 {
		return
	}
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s ×%d", k, reasons[k]))
	}
	l.Info("  by reason: %s", strings.Join(parts, ", "))
}

// DryRunConfig holds configuration for dry-run display.
type DryRunConfig struct {
	RunID        string
	TorURL       string
	Feeds        []string
	LocalFile    string
	StaticCIDRs  []string
	EntryLines   []string
	IndexSummary string
}

// DryRun prints the sources and the built index without reading input.
func (l *StderrLogger) DryRun(cfg DryRunConfig) {
	l.Info("DRY RUN: input is not read and no output is written")
	l.Separator()
	l.Info("Run ID:      %s", cfg.RunID)
	if cfg.TorURL != "" {
		l.Info("Tor list:    %s", cfg.TorURL)
	} else {
		l.Info("Tor list:    disabled")
	}
	for _, f := range cfg.Feeds {
		l.Info("Feed:        %s", f)
	}
	l.Info("Local file:  %s", cfg.LocalFile)
	if len(cfg.StaticCIDRs) > 0 {
		l.Info("Static:      %s", strings.Join(cfg.StaticCIDRs, ", "))
	}
	l.Separator()
	l.Info("Index: %s", cfg.IndexSummary)
	for _, line := range cfg.EntryLines {
		l.Info("  %s", line)
	}
}
