package ledger

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Reconcile refreshes the remote spend flag and balance of the records whose
// addresses are in scope and merges them back into records.
//
// A nil scope refreshes every record. A non-nil empty scope returns the
// records unchanged. With no records the scope is treated as a fresh ledger
// and records are created positionally from the remote answers.
//
// The local spend flag of a refreshed record becomes true when it already
// was or when the address is an input of a known transaction; it never
// returns to false.
func (e *Engine) Reconcile(ctx context.Context, records []address.Record, txs *transaction.Set,
	scope []string,
) ([]address.Record, error) {
	if scope == nil {
		scope = address.Addresses(records)
	}
	if len(scope) == 0 {
		return address.Sorted(records), nil
	}

	spent, balances, err := e.spendAndBalance(ctx, scope)
	if err != nil {
		return nil, err
	}

	var incoming []address.Record
	if len(records) == 0 {
		flags := make([]address.SpendStatus, len(scope))
		for i, a := range scope {
			flags[i] = address.SpendStatus{Local: txs.SpentFrom(a), Remote: spent[i]}
		}
		if incoming, err = address.CreateRecords(scope, balances, flags, nil); err != nil {
			return nil, err
		}
		for i := range incoming {
			incoming[i].HasTransactions = txs.HasTransactions(incoming[i].Address)
		}
	} else {
		if incoming, err = refresh(records, scope, spent, balances, txs); err != nil {
			return nil, err
		}
	}

	merged := address.Merge(records, incoming)
	if err := address.CheckDense(merged); err != nil {
		return nil, err
	}
	e.debug("reconciled %d of %d records", len(incoming), len(merged))
	return merged, nil
}

// MapLatest reconciles every record.
func (e *Engine) MapLatest(ctx context.Context, records []address.Record, txs *transaction.Set) ([]address.Record, error) {
	return e.Reconcile(ctx, records, txs, nil)
}

// Sync is the full refresh of an account ledger. An empty ledger is
// discovered from index 0. Otherwise every record is reconciled, the
// frontier is checked for transaction history and, when it has become used,
// discovery continues after it. The last record of the result is unused.
func (e *Engine) Sync(ctx context.Context, store Deriver, records []address.Record,
	txs *transaction.Set,
) ([]address.Record, error) {
	if len(records) == 0 {
		return e.FullHistory(ctx, store, txs)
	}
	if err := address.ValidateAll(records); err != nil {
		return nil, err
	}
	if err := address.CheckDense(address.Sorted(records)); err != nil {
		return nil, err
	}

	reconciled, err := e.MapLatest(ctx, records, txs)
	if err != nil {
		return nil, err
	}

	latest, _ := address.Latest(reconciled)
	hashes, err := e.remote.QueryTransactionHashes(ctx, []string{latest.Address})
	if err != nil {
		return nil, err
	}
	if len(hashes[latest.Address]) > 0 {
		latest.HasTransactions = true
		reconciled = address.Merge(reconciled, []address.Record{latest})
	}

	if !address.IsUsed(latest, txs) {
		return reconciled, nil
	}
	e.debug("frontier %d is used, discovering from %d", latest.Index, latest.Index+1)
	return e.UpToLatestUnused(ctx, store, reconciled, txs, DiscoverOptions{Index: latest.Index + 1})
}

// FilterSpent refreshes the remote spend flag of records and returns those
// spent by neither flag, in their original order.
func (e *Engine) FilterSpent(ctx context.Context, records []address.Record) ([]address.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	spent, err := e.remote.QuerySpentStatus(ctx, address.Addresses(records))
	if err != nil {
		return nil, err
	}
	if len(spent) != len(records) {
		return nil, malformed(len(records), len(spent))
	}

	out := make([]address.Record, 0, len(records))
	for i, r := range records {
		if r.Spent.Local || spent[i] {
			continue
		}
		r.Spent.Remote = false
		out = append(out, r)
	}
	return out, nil
}

// spendAndBalance fetches spend flags and balances for addrs concurrently.
func (e *Engine) spendAndBalance(ctx context.Context, addrs []string) ([]bool, []int64, error) {
	var (
		spent    []bool
		balances []int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spent, err = e.remote.QuerySpentStatus(gctx, addrs)
		return err
	})
	g.Go(func() (err error) {
		balances, err = e.remote.QueryBalances(gctx, addrs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(spent) != len(addrs) {
		return nil, nil, malformed(len(addrs), len(spent))
	}
	if len(balances) != len(addrs) {
		return nil, nil, malformed(len(addrs), len(balances))
	}
	return spent, balances, nil
}

// refresh builds updated copies of the records addressed by scope.
func refresh(records []address.Record, scope []string, spent []bool, balances []int64,
	txs *transaction.Set,
) ([]address.Record, error) {
	byAddress := make(map[string]address.Record, len(records))
	for _, r := range records {
		byAddress[r.Address] = r
	}

	out := make([]address.Record, 0, len(scope))
	for i, a := range scope {
		r, ok := byAddress[a]
		if !ok {
			return nil, syncerr.WithDetails(syncerr.ErrInvalidAddressRecord, map[string]string{
				"address": a,
				"reason":  "not in ledger",
			})
		}
		r.Balance = balances[i]
		r.Spent.Remote = spent[i]
		r.Spent.Local = r.Spent.Local || txs.SpentFrom(a)
		r.HasTransactions = r.HasTransactions || txs.HasTransactions(a)
		out = append(out, r)
	}
	return out, nil
}
