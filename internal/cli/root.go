package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/p4th0r/ipsift/internal/config"
	"github.com/p4th0r/ipsift/internal/logging"
)

// NewRootCmd creates the root command for ipsift.
func NewRootCmd(version ...string) *cobra.Command {
	ver := "dev"
	if len(version) > 0 && version[0] != "" {
		ver = version[0]
	}

	defaults, defaultsErr := config.LoadDefaults()

	cmd := &cobra.Command{
		Use:   "ipsift <command> [flags]",
		Short: "Vet lists of IP addresses",
		Long: `ipsift vets lists of IP addresses.

Commands:
  filter      Remove addresses listed as Tor exits, in CIDR blocks or in a
              local exclusion file, and write the rest sorted
  whois       Look up ASN and WHOIS data and guess whether each address
              belongs to a residential ISP
  wordcount   Count words in Markdown files below a directory

Defaults can be overridden with IPSIFT_* environment variables or a .env
file in the working directory.

Example:
  ipsift filter -i candidates.txt -o residential.txt --exclude-cidr 192.0.2.0/24
  ipsift whois -i residential.txt --json whois.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return defaultsErr
		},
	}

	// Add subcommands
	cmd.AddCommand(NewFilterCmd(defaults))
	cmd.AddCommand(NewWhoisCmd(defaults))
	cmd.AddCommand(NewWordCountCmd())
	cmd.AddCommand(NewVersionCmd(ver))
	cmd.AddCommand(NewCompletionCmd())

	return cmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *logging.StderrLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Handle signals in a goroutine
	go func() {
		select {
		case sig := <-sigChan:
			logger.Debug("Received signal: %v", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// newLogger creates the command logger and tees it into logPath if set.
func newLogger(quiet, verbose bool, logPath string) (*logging.StderrLogger, error) {
	logger := logging.NewStderrLogger(quiet, verbose)
	if err := logger.TeeToFile(logPath); err != nil {
		return nil, err
	}
	return logger, nil
}
