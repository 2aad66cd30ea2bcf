package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Write a completion script for bash, zsh, fish or powershell to stdout.

Example:
  source <(addrsync completion bash)
  addrsync completion zsh > "${fpath[1]}/_addrsync"
  addrsync completion fish > ~/.config/fish/completions/addrsync.fish
  addrsync completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, w := cmd.Root(), cmd.OutOrStdout()
		generators := map[string]func() error{
			"bash":       func() error { return root.GenBashCompletionV2(w, true) },
			"zsh":        func() error { return root.GenZshCompletion(w) },
			"fish":       func() error { return root.GenFishCompletion(w, true) },
			"powershell": func() error { return root.GenPowerShellCompletionWithDesc(w) },
		}
		return generators[args[0]]()
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
}
