package cli

import (
	"github.com/spf13/cobra"
)

// NewCompletionCmd creates the completion subcommand with shell-specific subcommands.
func NewCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for ipsift.

To load completions:

Bash:
  $ source <(ipsift completion bash)
  # To load completions for each session, execute once:
  $ ipsift completion bash > /etc/bash_completion.d/ipsift

Zsh:
  $ source <(ipsift completion zsh)
  # To load completions for each session, execute once:
  $ ipsift completion zsh > "${fpath[1]}/_ipsift"

Fish:
  $ ipsift completion fish | source
  # To load completions for each session, execute once:
  $ ipsift completion fish > ~/.config/fish/completions/ipsift.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			}
			return nil
		},
	}

	return cmd
}
