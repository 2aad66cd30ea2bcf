package cli

import (
	"github.com/spf13/cobra"
)

// syncCmd reconciles an account ledger with the node.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Discover and reconcile the addresses of an account",
	Long: `Bring the account ledger up to date with the node.

A new account is discovered from index 0 until the first unused address.
An existing ledger has every record refreshed, and when the last address
has been used since the previous sync, discovery continues from the next
index. The ledger always ends with exactly one unused address.

The mnemonic is read from ADDRSYNC_MNEMONIC or prompted for. Pass --xpub
to sync a watch-only account instead.

Example:
  ADDRSYNC_MNEMONIC="..." addrsync sync --account main
  addrsync sync --account cold --xpub xpub6C...`,
	RunE: runSync,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(syncCmd)
	addAccountFlag(syncCmd)
	addXPubFlag(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	seed, err := loadSeedStore(cc, xpubKey)
	if err != nil {
		return err
	}

	ws, err := cc.openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	records, err := ws.manager.Sync(commandContext(cmd), accountName, seed)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(newLedgerView(accountName, records))
	}
	out(w, "Synced account %s: %d addresses\n\n", accountName, len(records))
	renderRecords(w, records)
	return nil
}
