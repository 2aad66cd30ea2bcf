package cli

import (
	"github.com/spf13/cobra"
)

// nodeCmd is the parent command for node operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Inspect the ledger node",
	Long:  `Query the configured ledger node.`,
}

// nodeInfoCmd prints the node's consensus progress.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var nodeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show node version and round progress",
	Long: `Show the node's version and its current and latest solid rounds.

Example:
  addrsync node info
  ADDRSYNC_NODE_URL=http://node:14265 addrsync node info -o json`,
	RunE: runNodeInfo,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(nodeCmd)
	nodeCmd.AddCommand(nodeInfoCmd)
}

func runNodeInfo(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	ctx, cancel := contextWithTimeout(cmd, cc.Cfg.Node.Timeout)
	defer cancel()

	info, err := cc.Remote(cc.Cfg, cc.Log, cc.Metrics).QueryNodeInfo(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(info)
	}
	out(w, "Node:                 %s\n", cc.Cfg.Node.URL)
	out(w, "Version:              %s\n", info.AppVersion)
	out(w, "Current round:        %d\n", info.CurrentRoundIndex)
	out(w, "Latest solid round:   %d (%s)\n", info.LatestSolidRoundIndex, info.LatestSolidRoundHash)
	out(w, "Round start:          %d\n", info.RoundStartIndex)
	out(w, "Last snapshot round:  %d\n", info.LastSnapshottedRoundIndex)
	return nil
}
