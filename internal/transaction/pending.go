package transaction

import (
	"github.com/mrz1836/addrsync/internal/address"
)

// PendingIncomingAddresses returns the addresses receiving value from
// unconfirmed incoming transfers.
func PendingIncomingAddresses(txs []Transaction) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tx := range txs {
		if !tx.Pending() || !tx.Incoming || tx.Value() == 0 {
			continue
		}
		for _, o := range tx.Outputs {
			if o.Value > 0 {
				out[o.Address] = struct{}{}
			}
		}
	}
	return out
}

// PendingOutgoingAddresses returns the addresses spent by unconfirmed
// outgoing transfers.
func PendingOutgoingAddresses(txs []Transaction) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tx := range txs {
		if !tx.Pending() || tx.Incoming {
			continue
		}
		for _, in := range tx.Inputs {
			out[in.Address] = struct{}{}
		}
	}
	return out
}

// FilterPendingIncoming drops records that are receiving a pending
// incoming transfer.
func FilterPendingIncoming(records []address.Record, txs []Transaction) []address.Record {
	return without(records, PendingIncomingAddresses(txs))
}

// FilterPendingOutgoing drops records that are inputs of a pending
// outgoing transfer.
func FilterPendingOutgoing(records []address.Record, txs []Transaction) []address.Record {
	return without(records, PendingOutgoingAddresses(txs))
}

func without(records []address.Record, drop map[string]struct{}) []address.Record {
	if len(drop) == 0 {
		return records
	}
	out := make([]address.Record, 0, len(records))
	for _, r := range records {
		if _, ok := drop[r.Address]; !ok {
			out = append(out, r)
		}
	}
	return out
}
