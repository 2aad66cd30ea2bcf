package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var inputsAmount int64

// inputsCmd selects the inputs of a transfer.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var inputsCmd = &cobra.Command{
	Use:   "inputs",
	Short: "Select addresses covering an amount",
	Long: `Select unspent addresses with a positive balance, in index order, until
their balances cover the amount. Addresses with a pending outgoing transfer
are skipped. The ledger is used as last synced; run sync first for fresh
balances.

Example:
  addrsync inputs --account main --amount 1500`,
	RunE: runInputs,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(inputsCmd)
	addAccountFlag(inputsCmd)
	inputsCmd.Flags().Int64Var(&inputsAmount, "amount", 0, "amount the inputs must cover")
	_ = inputsCmd.MarkFlagRequired("amount")
}

// inputsView is the JSON shape of an input selection.
type inputsView struct {
	Account string          `json:"account"`
	Amount  int64           `json:"amount"`
	Total   int64           `json:"total"`
	Inputs  []address.Input `json:"inputs"`
}

func runInputs(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	ws, err := cc.openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	inputs, err := ws.manager.Inputs(commandContext(cmd), accountName, inputsAmount)
	if err != nil {
		return err
	}
	if inputs == nil {
		inputs = []address.Input{}
	}

	view := inputsView{Account: accountName, Amount: inputsAmount, Inputs: inputs}
	for _, in := range inputs {
		view.Total += in.Balance
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(view)
	}

	table := output.NewTable("KEY INDEX", "ADDRESS", "BALANCE", "SECURITY").AlignRight(0, 2, 3)
	for _, in := range inputs {
		table.AddRow(
			strconv.Itoa(in.KeyIndex),
			in.Address,
			strconv.FormatInt(in.Balance, 10),
			strconv.Itoa(in.Security),
		)
	}
	_ = table.Render(w)
	outln(w)
	out(w, "Selected %d for %d\n", view.Total, view.Amount)
	return nil
}
