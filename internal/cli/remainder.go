package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	remainderBlacklist []string
	remainderQR        bool
)

// remainderCmd picks the address that receives change.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var remainderCmd = &cobra.Command{
	Use:   "remainder",
	Short: "Select an address to receive the change of a transfer",
	Long: `Select the first address that is unspent, not used as an input of the
transfer and not in the blacklist. New addresses are derived when every
recorded one is excluded, and are added to the ledger.

Blacklisted addresses may be given with or without checksum.

Example:
  addrsync remainder --account main
  addrsync remainder --account main --blacklist ADDR1,ADDR2 --qr`,
	RunE: runRemainder,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(remainderCmd)
	addAccountFlag(remainderCmd)
	addXPubFlag(remainderCmd)
	remainderCmd.Flags().StringSliceVar(&remainderBlacklist, "blacklist", nil, "addresses that must not receive the change")
	remainderCmd.Flags().BoolVar(&remainderQR, "qr", false, "also print the address as a QR code on a terminal")
}

// remainderView is the JSON shape of a remainder selection.
type remainderView struct {
	Account   string `json:"account"`
	Address   string `json:"address"`
	Checksum  string `json:"checksum"`
	Formatted string `json:"formatted"`
}

func runRemainder(cmd *cobra.Command, _ []string) error {
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

	remainder, err := ws.manager.Remainder(commandContext(cmd), accountName, seed, remainderBlacklist)
	if err != nil {
		return err
	}
	checksum, err := address.Checksum(remainder)
	if err != nil {
		return err
	}

	view := remainderView{
		Account:   accountName,
		Address:   remainder,
		Checksum:  checksum,
		Formatted: remainder + checksum,
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(view)
	}
	outln(w, view.Formatted)
	if remainderQR {
		if !output.RenderAddressQR(w, view.Formatted, output.DefaultQRConfig()) {
			cc.Fmt.Warnf(cmd.ErrOrStderr(), "QR code skipped: output is not a terminal")
		}
	}
	return nil
}
