package ledger

import (
	"context"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/transaction"
)

// DiscoverOptions controls a single discovery run.
type DiscoverOptions struct {
	// Index is the first index to derive.
	Index int

	// BatchSize overrides the engine batch size when positive.
	BatchSize int
}

// UpToLatestUnused derives and queries addresses from opts.Index in batches
// until it reaches the first unused one. Addresses up to and including that
// frontier are merged into existing; later addresses of the last batch are
// discarded. There is no upper bound on the number of batches: the run ends
// at the frontier, on error or when ctx is done. Nothing is returned on error.
func (e *Engine) UpToLatestUnused(ctx context.Context, store Deriver, existing []address.Record,
	txs *transaction.Set, opts DiscoverOptions,
) ([]address.Record, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = e.batchSize
	}
	if opts.Index < 0 {
		opts.Index = 0
	}

	var found []address.Record
	for next := opts.Index; ; next += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addrs, err := derive(ctx, store, next, size)
		if err != nil {
			return nil, err
		}
		statuses, err := e.status(ctx, addrs)
		if err != nil {
			return nil, err
		}

		// Statuses are positional; scan strictly in index order.
		for i, addr := range addrs {
			rec, err := newRecord(next+i, addr, statuses[i], txs)
			if err != nil {
				return nil, err
			}
			found = append(found, rec)
			if !address.IsUsed(rec, txs) {
				e.debug("frontier at index %d after %d derived", rec.Index, len(found))
				return address.Merge(existing, found), nil
			}
		}
		e.debug("batch %d-%d fully used, deriving next", next, next+size-1)
	}
}

// FullHistory discovers an account's ledger from index 0.
func (e *Engine) FullHistory(ctx context.Context, store Deriver, txs *transaction.Set) ([]address.Record, error) {
	return e.UpToLatestUnused(ctx, store, nil, txs, DiscoverOptions{})
}

// TrimToFrontier drops trailing unused records so that exactly one unused
// record remains at the end of the ledger. Trailing candidates are refreshed
// from the node first: spend flag, balance and transaction history. When the
// last record turns out to be used a new frontier is discovered after it.
func (e *Engine) TrimToFrontier(ctx context.Context, store Deriver, records []address.Record,
	txs *transaction.Set,
) ([]address.Record, error) {
	if len(records) == 0 {
		return e.FullHistory(ctx, store, txs)
	}
	sorted := address.Sorted(records)

	// Trailing records the ledger believes unused.
	start := len(sorted)
	for start > 0 && !address.IsUsed(sorted[start-1], txs) {
		start--
	}

	if start < len(sorted) {
		statuses, err := e.status(ctx, address.Addresses(sorted[start:]))
		if err != nil {
			return nil, err
		}
		for i, st := range statuses {
			r := &sorted[start+i]
			r.Balance = st.balance
			r.Spent.Remote = st.spent
			r.HasTransactions = st.hashes > 0 || txs.HasTransactions(r.Address)
		}
	}

	lastUsed := -1
	for i := len(sorted) - 1; i >= 0; i-- {
		if address.IsUsed(sorted[i], txs) {
			lastUsed = i
			break
		}
	}

	if lastUsed == len(sorted)-1 {
		return e.UpToLatestUnused(ctx, store, sorted, txs, DiscoverOptions{
			Index: sorted[lastUsed].Index + 1,
		})
	}
	e.debug("trimmed %d trailing unused records", len(sorted)-lastUsed-2)
	return sorted[:lastUsed+2], nil
}
