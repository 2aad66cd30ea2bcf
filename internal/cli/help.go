package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// walkCommands calls fn on cmd and then on every command below it.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends the available subcommands to a parent's long
// help, so the list cannot drift from the registered tree.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", sub.Name(), sub.Short)
		}
	}
	_ = tw.Flush()

	cmd.Long = strings.TrimRight(cmd.Long, "\n") + "\n\nSubcommands:\n" + sb.String()
}
