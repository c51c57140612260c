package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/p4th0r/ipsift/internal/config"
	"github.com/p4th0r/ipsift/internal/logging"
	"github.com/p4th0r/ipsift/internal/wordcount"
)

// NewWordCountCmd creates the wordcount subcommand.
func NewWordCountCmd() *cobra.Command {
	cfg := &config.WordCountConfig{}

	cmd := &cobra.Command{
		Use:   "wordcount <dir>",
		Short: "Count words in Markdown files below a directory",
		Long: `Walk a directory tree and count the words in every file with the given
extension (default .md). Text is lowercased and words are runs of letters,
digits and underscores. Files that cannot be read or are not UTF-8 are
reported and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Root = args[0]
			return runWordCount(cfg, cmd.OutOrStdout())
		},
	}

	AddWordCountFlags(cmd, cfg)
	return cmd
}

func runWordCount(cfg *config.WordCountConfig, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewStderrLogger(false, false)
	res, err := wordcount.NewCounter(cfg.Ext, cfg.Workers, logger).Count(cfg.Root)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Total word count in %s files: %d\n", cfg.Ext, res.Total)
	if len(res.Errors) > 0 {
		logger.Warn("%d of %d files skipped", len(res.Errors), res.Files+len(res.Errors))
	}
	return nil
}
