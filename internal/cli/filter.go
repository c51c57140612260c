package cli

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/p4th0r/ipsift/internal/config"
	"github.com/p4th0r/ipsift/internal/exclusion"
	"github.com/p4th0r/ipsift/internal/input"
	"github.com/p4th0r/ipsift/internal/logging"
	"github.com/p4th0r/ipsift/internal/metrics"
	"github.com/p4th0r/ipsift/internal/session"
	"github.com/p4th0r/ipsift/internal/source"
)

// NewFilterCmd creates the filter subcommand.
func NewFilterCmd(d config.Defaults) *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "filter -i <input> -o <output> [flags]",
		Short: "Remove Tor exits, listed addresses and CIDR blocks from an IP list",
		Long: `Filter a list of IP addresses against Tor exit nodes, custom CIDRs and a
local IP/CIDR exclusion file, and write the remaining addresses sorted
(IPv4 before IPv6, numerically ascending).

Exclusion sources:
  static     IPSIFT_EXCLUDE_CIDRS plus every --exclude-cidr
  tor        the Tor bulk exit list (single addresses only)
  --feed     additional remote lists (single addresses only)
  local      --local-exclude-file, addresses, CIDRs or start-end ranges

An unavailable source is a warning, not an error. The run fails only when
the input is missing, unreadable or has no valid address, or when the
output cannot be written; the output file is not touched in that case.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(cfg)
		},
	}

	AddFilterFlags(cmd, cfg, d)
	return cmd
}

func runFilter(cfg *config.Config) error {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Quiet, cfg.Verbose, cfg.LogPath)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logger.Close()

	ctx, cancel := signalContext(logger)
	defer cancel()

	runID, err := session.GenerateRunID(reportDir(cfg.ReportPath))
	if err != nil {
		return err
	}
	cfg.RunID = runID

	startTime := time.Now()
	logger.RunStart(cfg.RunID, "filter", startTime)

	// --- Gather exclusion data ---
	origins, err := buildOrigins(cfg)
	if err != nil {
		return err
	}
	agg := source.NewAggregator(logger, origins...)
	idx, stats, entries := agg.Build(ctx)

	if cfg.DryRun {
		logger.DryRun(dryRunConfig(cfg, idx, entries))
		return nil
	}

	// --- Load candidates ---
	candidates, _, err := input.Load(cfg.Input, cfg.InputFormat, logger)
	if err != nil {
		return fmt.Errorf("loading input: %w", err)
	}

	// --- Classify ---
	res := exclusion.Classify(idx, candidates, func(a netip.Addr, err error) {
		logger.CandidateError(a.String(), err)
	})
	for _, d := range res.Excluded {
		logger.Debug("Excluding %s (%s)", d.Addr, d.Reason)
	}
	reasons := res.ReasonCounts()
	logger.FilterSummary(len(candidates), len(res.Excluded), len(res.Kept), reasons)

	// --- Write output ---
	if err := writeAddrs(cfg.Output, res.Kept); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Info("Wrote %d addresses to %s", len(res.Kept), cfg.Output)

	endTime := time.Now()
	duration := endTime.Sub(startTime)

	// Write JSON report
	if cfg.ReportPath != "" {
		path := resolveReportPath(cfg.ReportPath, cfg.RunID, startTime)
		report := logging.BuildRunReport(
			logging.RunInfo{
				ID:           cfg.RunID,
				StartTime:    startTime,
				EndTime:      endTime,
				DurationSecs: duration.Seconds(),
				Input:        cfg.Input,
				InputFormat:  cfg.InputFormat,
				Output:       cfg.Output,
			},
			source.ReportEntries(stats),
			excludedEntries(res.Excluded),
			logger.Events().GetEvents(),
			logging.SummaryInfo{
				IndexAddresses: idx.NumAddresses(),
				IndexRanges:    idx.NumRanges(),
				Candidates:     len(candidates),
				Excluded:       len(res.Excluded),
				Kept:           len(res.Kept),
				ByReason:       reasons,
			},
		)
		if err := logging.WriteJSON(path, report); err != nil {
			logger.Error("Failed to write JSON report: %v", err)
		} else {
			logger.Info("JSON report written to %s", path)
		}
	}

	// Write metrics
	if cfg.MetricsPath != "" {
		rec := metrics.NewRecorder()
		for _, st := range stats {
			rec.ObserveSource(st.Name, st.Addresses, st.Ranges, st.Invalid, st.Err == nil)
		}
		rec.ObserveResult(len(candidates), len(res.Kept), reasons)
		rec.ObserveRun(endTime, duration)
		if err := rec.WriteTextfile(cfg.MetricsPath); err != nil {
			logger.Error("Failed to write metrics: %v", err)
		} else {
			logger.Debug("Metrics written to %s", cfg.MetricsPath)
		}
	}

	logger.RunEnd(cfg.RunID, duration)
	return nil
}

// buildOrigins returns the exclusion origins in merge order: static, Tor,
// extra feeds, local file.
func buildOrigins(cfg *config.Config) ([]source.Origin, error) {
	origins := []source.Origin{source.NewStatic(cfg.BuiltinCIDRs, cfg.ExcludeCIDRs)}

	if !cfg.NoTor {
		tor, err := source.NewFeed(source.FeedConfig{
			URL:       cfg.TorURL,
			Name:      source.TorFeedName,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
		})
		if err != nil {
			return nil, err
		}
		origins = append(origins, tor)
	}

	for _, u := range cfg.Feeds {
		feed, err := source.NewFeed(source.FeedConfig{
			URL:       u,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.FetchTimeout,
		})
		if err != nil {
			return nil, err
		}
		origins = append(origins, feed)
	}

	origins = append(origins, source.NewFile(cfg.LocalExcludeFile))
	return origins, nil
}

func dryRunConfig(cfg *config.Config, idx *exclusion.Index, entries []exclusion.Entry) logging.DryRunConfig {
	dr := logging.DryRunConfig{
		RunID:        cfg.RunID,
		Feeds:        cfg.Feeds,
		LocalFile:    cfg.LocalExcludeFile,
		StaticCIDRs:  cfg.StaticCIDRs(),
		IndexSummary: idx.Summary(),
	}
	if !cfg.NoTor {
		dr.TorURL = cfg.TorURL
	}
	for _, e := range entries {
		dr.EntryLines = append(dr.EntryLines, fmt.Sprintf("%s  (%s)", e, e.Token.Where()))
	}
	return dr
}

// writeAddrs writes one address per line, newline-terminated.
func writeAddrs(path string, addrs []netip.Addr) error {
	var sb strings.Builder
	for _, a := range addrs {
		sb.WriteString(a.String())
		sb.WriteByte('\n')
	}
	return logging.WriteFileAtomic(path, []byte(sb.String()))
}

func excludedEntries(decisions []exclusion.Decision) []logging.ExcludedEntry {
	out := make([]logging.ExcludedEntry, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, logging.ExcludedEntry{
			Address: d.Addr.String(),
			Reason:  d.Reason,
			Source:  d.Match.Origin,
		})
	}
	return out
}

// reportDir returns the directory run IDs must not collide in.
func reportDir(reportPath string) string {
	if reportPath == "" {
		return "."
	}
	if isDir(reportPath) {
		return reportPath
	}
	return filepath.Dir(reportPath)
}

// resolveReportPath places the report inside reportPath when it names an
// existing directory.
func resolveReportPath(reportPath, runID string, start time.Time) string {
	if isDir(reportPath) {
		return session.ArtifactPath(reportPath, runID, start, "json")
	}
	return reportPath
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
