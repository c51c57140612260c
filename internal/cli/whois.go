package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/p4th0r/ipsift/internal/config"
	"github.com/p4th0r/ipsift/internal/input"
	"github.com/p4th0r/ipsift/internal/logging"
	"github.com/p4th0r/ipsift/internal/whois"
)

// NewWhoisCmd creates the whois subcommand.
func NewWhoisCmd(d config.Defaults) *cobra.Command {
	cfg := &config.WhoisConfig{}

	cmd := &cobra.Command{
		Use:   "whois -i <input> [flags]",
		Short: "Look up ASN and WHOIS data and guess residential vs. hosting",
		Long: `Look up each address sequentially and print its ASN, network name and
description, followed by a keyword assessment:

  likely-residential       ISP/broadband keywords and no hosting keywords
  likely-non-residential   hosting, cloud, VPN or CDN keywords
  undetermined             neither, review manually

ASN data comes from a GeoLite2-ASN database when --asn-db is given and from
Team Cymru's DNS service otherwise. Private and reserved addresses are
skipped. The keyword assessment is a heuristic, not a fact.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhois(cfg, cmd.OutOrStdout())
		},
	}

	AddWhoisFlags(cmd, cfg, d)
	return cmd
}

// whoisReport is the JSON document written by --json.
type whoisReport struct {
	Records []whois.Record `json:"records"`
	Summary whois.Summary  `json:"summary"`
}

func runWhois(cfg *config.WhoisConfig, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewStderrLogger(cfg.Quiet, cfg.Verbose)

	ctx, cancel := signalContext(logger)
	defer cancel()

	addrs, _, err := input.LoadText(cfg.Input, logger)
	if err != nil {
		return fmt.Errorf("loading input: %w", err)
	}

	var resolver whois.ASNResolver
	if cfg.ASNDB != "" {
		db, err := whois.OpenMMDB(cfg.ASNDB)
		if err != nil {
			return err
		}
		defer db.Close()
		resolver = db
		logger.Debug("Using ASN database %s", cfg.ASNDB)
	} else {
		cymru := whois.NewCymruResolver(cfg.Resolver, cfg.Timeout)
		resolver = cymru
		logger.Debug("Using Team Cymru DNS via %s", cymru.Server())
	}

	var client *whois.Client
	if !cfg.NoWhois {
		client = whois.NewClient(nil, cfg.Timeout)
	}

	looker := whois.NewLooker(whois.LookerConfig{
		ASN:       resolver,
		Whois:     client,
		Heuristic: whois.DefaultHeuristic(),
		Delay:     cfg.Delay,
		Logger:    logger,
	})

	logger.Info("Starting lookups for %d addresses...", len(addrs))
	records, runErr := looker.Run(ctx, addrs, func(i int, rec whois.Record) {
		whois.PrintRecord(out, i, len(addrs), rec)
		logger.Info("Processed %d of %d addresses", i+1, len(addrs))
	})

	summary := whois.Summarize(records)
	logger.Separator()
	logger.Info("Lookups complete: %d residential, %d non-residential, %d undetermined, %d skipped, %d failed",
		summary.LikelyResidential, summary.LikelyNonResidential, summary.Undetermined, summary.Skipped, summary.Failed)

	if cfg.JSONPath != "" {
		if err := logging.WriteJSON(cfg.JSONPath, whoisReport{Records: records, Summary: summary}); err != nil {
			return fmt.Errorf("writing JSON: %w", err)
		}
		logger.Info("JSON written to %s", cfg.JSONPath)
	}

	if runErr != nil {
		return fmt.Errorf("lookups interrupted after %d of %d addresses: %w", len(records), len(addrs), runErr)
	}
	return nil
}

