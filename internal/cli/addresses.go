package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/output"
	"github.com/mrz1836/addrsync/internal/storage"
)

// defaultAccount is used when --account is not given.
const defaultAccount = "default"

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	accountName string
	xpubKey     string
	listUnspent bool
)

// addressesCmd is the parent command for ledger inspection.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Inspect the address ledger",
	Long:  `Show or trim the addresses recorded for an account.`,
}

// addressesListCmd lists the ledger of one account.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recorded addresses of an account",
	Long: `List the addresses recorded for an account, ordered by index.

With --unspent the node is asked for the current spend state and addresses
spent locally or remotely are left out.

Example:
  addrsync addresses list --account main
  addrsync addresses list --account main --unspent -o json`,
	RunE: runAddressesList,
}

// addressesAccountsCmd lists the stored accounts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesAccountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts with a stored ledger",
	Long: `List the accounts that have a ledger in the configured storage backend.

Example:
  addrsync addresses accounts`,
	RunE: runAddressesAccounts,
}

// addressesTrimCmd drops trailing unused addresses from a ledger.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var addressesTrimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Drop trailing unused addresses from an account",
	Long: `Shrink the ledger so it ends with exactly one unused address.

Addresses after the last used one are checked on the node for a spend,
a balance or transaction history first, so nothing holding funds is dropped.
When the last recorded address turns out to be used, discovery continues
after it. Addresses left behind by remainder lookups are the usual source
of extra unused records.

Example:
  ADDRSYNC_MNEMONIC="..." addrsync addresses trim --account main
  addrsync addresses trim --account cold --xpub xpub6C...`,
	RunE: runAddressesTrim,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(addressesCmd)
	addressesCmd.AddCommand(addressesListCmd)
	addressesCmd.AddCommand(addressesAccountsCmd)
	addressesCmd.AddCommand(addressesTrimCmd)

	addAccountFlag(addressesListCmd)
	addAccountFlag(addressesTrimCmd)
	addXPubFlag(addressesTrimCmd)
	addressesListCmd.Flags().BoolVar(&listUnspent, "unspent", false, "only show addresses not spent from")
}

// addAccountFlag registers the shared --account flag.
func addAccountFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&accountName, "account", "a", defaultAccount, "account name")
}

// addXPubFlag registers the shared --xpub flag.
func addXPubFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&xpubKey, "xpub", "", "account extended public key for a watch-only account")
}

func runAddressesList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	ctx := commandContext(cmd)

	ws, err := cc.openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	records, err := ws.manager.Ledger(ctx, accountName)
	if err != nil {
		return err
	}
	if listUnspent && len(records) > 0 {
		if records, err = ws.engine.FilterSpent(ctx, records); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(newLedgerView(accountName, records))
	}
	if len(records) == 0 {
		outln(w, "No addresses recorded.")
		outln(w, "Discover them with: addrsync sync --account "+accountName)
		return nil
	}
	renderRecords(w, records)
	return nil
}

func runAddressesTrim(cmd *cobra.Command, _ []string) error {
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

	records, err := ws.manager.Trim(commandContext(cmd), accountName, seed)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(newLedgerView(accountName, records))
	}
	out(w, "Trimmed account %s: %d addresses\n\n", accountName, len(records))
	renderRecords(w, records)
	return nil
}

func runAddressesAccounts(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	store, err := storage.New(cc.Cfg.Storage.Backend, cc.Cfg.StorageDir())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	names, err := store.List(commandContext(cmd))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		if names == nil {
			names = []string{}
		}
		return cc.Fmt.JSON(names)
	}
	if len(names) == 0 {
		outln(w, "No accounts found.")
		return nil
	}
	for _, name := range names {
		out(w, "  - %s\n", name)
	}
	return nil
}

// ledgerView is the JSON shape of an account ledger.
type ledgerView struct {
	Account   string           `json:"account"`
	Addresses []address.Record `json:"addresses"`
	Balance   int64            `json:"balance"`
}

func newLedgerView(account string, records []address.Record) ledgerView {
	if records == nil {
		records = []address.Record{}
	}
	return ledgerView{
		Account:   account,
		Addresses: records,
		Balance:   address.AccumulateBalance(records),
	}
}

// renderRecords prints records as a table followed by the total balance.
func renderRecords(w io.Writer, records []address.Record) {
	table := output.NewTable("INDEX", "ADDRESS", "BALANCE", "SPENT", "TXS").AlignRight(0, 2)
	for _, r := range records {
		table.AddRow(
			strconv.Itoa(r.Index),
			r.Address+r.Checksum,
			strconv.FormatInt(r.Balance, 10),
			spentLabel(r.Spent),
			yesNo(r.HasTransactions),
		)
	}
	_ = table.Render(w)
	outln(w)
	out(w, "Total balance: %d\n", address.AccumulateBalance(records))
}

func spentLabel(s address.SpendStatus) string {
	switch {
	case s.Local && s.Remote:
		return "local,remote"
	case s.Local:
		return "local"
	case s.Remote:
		return "remote"
	default:
		return "-"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
