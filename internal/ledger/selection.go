package ledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/seedstore"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// InputsForSpend picks spendable records in ascending index order until
// their balances cover amount. A record is spendable when neither spend flag
// is set, it holds a balance and no pending outgoing transfer spends it.
func (e *Engine) InputsForSpend(records []address.Record, txs *transaction.Set, amount int64) ([]address.Record, error) {
	if amount < 0 {
		return nil, syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
			"amount": strconv.FormatInt(amount, 10),
		})
	}
	if amount == 0 {
		return []address.Record{}, nil
	}

	candidates := address.WithBalance(address.SelectUnspentInputs(address.Sorted(records)))
	candidates = transaction.FilterPendingOutgoing(candidates, txs.Transactions())

	var total int64
	for i, r := range candidates {
		total += r.Balance
		if total >= amount {
			return candidates[:i+1], nil
		}
	}

	return nil, syncerr.WithDetails(syncerr.ErrInsufficientFunds, map[string]string{
		"available": strconv.FormatInt(total, 10),
		"required":  strconv.FormatInt(amount, 10),
	})
}

// UpToRemainder returns an unused address outside blacklist to receive
// change, plus the ledger extended with every address derived on the way.
//
// The frontier is used when it qualifies. Otherwise addresses are derived
// one at a time after it; each is queried and recorded, including rejected
// ones, so the last record of the returned ledger is always the remainder.
func (e *Engine) UpToRemainder(ctx context.Context, store Deriver, records []address.Record,
	txs *transaction.Set, blacklist []string,
) (string, []address.Record, error) {
	ledger := address.Sorted(records)
	if len(ledger) == 0 {
		var err error
		if ledger, err = e.FullHistory(ctx, store, txs); err != nil {
			return "", nil, err
		}
	}

	// Hex addresses compare case-insensitively.
	banned := make(map[string]struct{}, len(blacklist))
	for _, a := range blacklist {
		banned[strings.ToLower(address.StripChecksum(a))] = struct{}{}
	}

	candidate := ledger[len(ledger)-1]
	var derived []address.Record
	for {
		if _, skip := banned[strings.ToLower(candidate.Address)]; !skip && !address.IsUsed(candidate, txs) {
			e.debug("remainder at index %d, %d derived", candidate.Index, len(derived))
			return candidate.Address, address.Merge(ledger, derived), nil
		}
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		next := candidate.Index + 1
		addrs, err := derive(ctx, store, next, 1)
		if err != nil {
			return "", nil, err
		}
		statuses, err := e.status(ctx, addrs)
		if err != nil {
			return "", nil, err
		}
		if candidate, err = newRecord(next, addrs[0], statuses[0], txs); err != nil {
			return "", nil, err
		}
		derived = append(derived, candidate)
	}
}

// AttachAndFormat attaches a zero-value transfer to the record's address so
// it appears on the node, then returns the refreshed record and the new
// transaction. An address that already has node history is rejected with
// ErrAddressAlreadyAttached. The local spend flag is left unchanged.
func (e *Engine) AttachAndFormat(ctx context.Context, store seedstore.SeedStore, record address.Record,
	txs *transaction.Set,
) (address.Record, []transaction.Transaction, error) {
	if err := address.Validate(record); err != nil {
		return address.Record{}, nil, err
	}

	hashes, err := e.remote.QueryTransactionHashes(ctx, []string{record.Address})
	if err != nil {
		return address.Record{}, nil, err
	}
	if n := len(hashes[record.Address]); n > 0 {
		return address.Record{}, nil, syncerr.WithDetails(syncerr.ErrAddressAlreadyAttached, map[string]string{
			"address":      record.Address,
			"transactions": strconv.Itoa(n),
		})
	}

	signed, err := store.SignTransfer(ctx, &seedstore.Transfer{
		Outputs: []seedstore.Output{{Address: record.Address, Value: 0}},
	})
	if err != nil {
		return address.Record{}, nil, err
	}
	if err := e.remote.BroadcastTransactions(ctx, signed.Payloads); err != nil {
		return address.Record{}, nil, err
	}

	statuses, err := e.status(ctx, []string{record.Address})
	if err != nil {
		return address.Record{}, nil, err
	}

	attached := signed.Transaction
	attached.Broadcasted = true

	out := record
	out.Checksum = address.MustChecksum(record.Address)
	out.Balance = statuses[0].balance
	out.Spent.Remote = statuses[0].spent
	out.Spent.Local = record.Spent.Local || txs.SpentFrom(record.Address)
	out.HasTransactions = true

	e.debug("attached address %d (%s)", out.Index, attached.Hash)
	return out, []transaction.Transaction{attached}, nil
}
