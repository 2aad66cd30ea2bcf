package cli

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var attachIndex int

// attachCmd attaches a recorded address to the node.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach an unused address to the node",
	Long: `Broadcast a zero-value transfer to a recorded address so the node
knows about it. Fails when the node already has transactions for the
address. Needs the mnemonic; watch-only accounts cannot sign.

Example:
  ADDRSYNC_MNEMONIC="..." addrsync attach --account main --index 11`,
	RunE: runAttach,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(attachCmd)
	addAccountFlag(attachCmd)
	attachCmd.Flags().IntVar(&attachIndex, "index", 0, "ledger index of the address")
	_ = attachCmd.MarkFlagRequired("index")
}

func runAttach(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	seed, err := loadSeedStore(cc, "")
	if err != nil {
		return err
	}

	ws, err := cc.openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	record, err := ws.manager.Attach(commandContext(cmd), accountName, seed, attachIndex)
	if err != nil {
		return err
	}

	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(record)
	}
	cc.Fmt.Successf("Attached address %d: %s%s", record.Index, record.Address, record.Checksum)
	return nil
}
