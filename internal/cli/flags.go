// Package cli provides the command-line interface for ipsift.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/p4th0r/ipsift/internal/config"
	"github.com/p4th0r/ipsift/internal/input"
	"github.com/p4th0r/ipsift/internal/wordcount"
)

// AddFilterFlags adds all filter flags to cmd. Defaults come from d.
func AddFilterFlags(cmd *cobra.Command, cfg *config.Config, d config.Defaults) {
	cfg.BuiltinCIDRs = d.ExcludeCIDRs

	// Input and output
	cmd.Flags().StringVarP(&cfg.Input, "input", "i", "", "Path to the input file (one IP per line)")
	cmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Path to the output file for addresses that match no exclusion")
	cmd.Flags().StringVar(&cfg.InputFormat, "input-format", input.FormatText, "Input format: text or pcap (pcap and pcapng captures)")

	// Exclusion sources
	cmd.Flags().StringArrayVar(&cfg.ExcludeCIDRs, "exclude-cidr", nil, "Add a CIDR block to the exclusion list (e.g., 192.0.2.0/24); repeatable")
	cmd.Flags().StringVar(&cfg.LocalExcludeFile, "local-exclude-file", d.LocalExcludeFile, "Path to a local file of IPs and/or CIDRs to exclude")
	cmd.Flags().StringVar(&cfg.TorURL, "tor-url", d.TorURL, "URL of the Tor exit node list")
	cmd.Flags().BoolVar(&cfg.NoTor, "no-tor", false, "Do not fetch the Tor exit node list")
	cmd.Flags().StringArrayVar(&cfg.Feeds, "feed", nil, "Additional URL of a plaintext list of IPs to exclude; repeatable")
	cmd.Flags().DurationVar(&cfg.FetchTimeout, "fetch-timeout", d.FetchTimeout, "Timeout for each remote list")
	cmd.Flags().StringVar(&cfg.UserAgent, "user-agent", d.UserAgent, "User-Agent header sent to remote lists")

	// Common options
	cmd.Flags().StringVar(&cfg.ReportPath, "report", "", "Write a JSON run report to this file (or into this directory as ipsift-<id>-<timestamp>.json)")
	cmd.Flags().StringVar(&cfg.MetricsPath, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	cmd.Flags().StringVar(&cfg.LogPath, "log-file", "", "Also write log output to this file (rotated at 10 MB)")
	cmd.Flags().BoolVarP(&cfg.Quiet, "quiet", "q", false, "Suppress informational output (warnings are still shown)")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show debug output")
	cmd.Flags().BoolVar(&cfg.DryRun, "dry-run", false, "Build and show the exclusion index without reading input or writing output")

	_ = cmd.MarkFlagFilename("input")
	_ = cmd.MarkFlagFilename("output")
	_ = cmd.MarkFlagFilename("local-exclude-file")
}

// AddWhoisFlags adds all whois flags to cmd.
func AddWhoisFlags(cmd *cobra.Command, cfg *config.WhoisConfig, d config.Defaults) {
	cmd.Flags().StringVarP(&cfg.Input, "input", "i", "", "Path to the input file (one IP per line)")
	cmd.Flags().DurationVar(&cfg.Delay, "delay", d.WhoisDelay, "Delay between queries to avoid rate limiting")
	cmd.Flags().StringVar(&cfg.ASNDB, "asn-db", "", "GeoLite2-ASN .mmdb file; Team Cymru DNS is used when unset")
	cmd.Flags().StringVar(&cfg.Resolver, "resolver", "", "DNS resolver for ASN lookups as host:port (default: system resolver)")
	cmd.Flags().StringVar(&cfg.JSONPath, "json", "", "Also write all records as JSON to this file")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", d.FetchTimeout, "Timeout for each DNS or WHOIS query")
	cmd.Flags().BoolVar(&cfg.NoWhois, "no-whois", false, "Use ASN data only, skip WHOIS server queries")
	cmd.Flags().BoolVarP(&cfg.Quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Show debug output")

	_ = cmd.MarkFlagFilename("input")
	_ = cmd.MarkFlagFilename("asn-db", "mmdb")
}

// AddWordCountFlags adds all wordcount flags to cmd.
func AddWordCountFlags(cmd *cobra.Command, cfg *config.WordCountConfig) {
	cmd.Flags().StringVar(&cfg.Ext, "ext", wordcount.DefaultExt, "File extension to count")
	cmd.Flags().IntVar(&cfg.Workers, "workers", wordcount.DefaultWorkers, "Number of files counted in parallel")
}
