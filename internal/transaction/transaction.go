// Package transaction models the transfers this client already knows about
// and derives spend and pending state for ledger addresses from them.
package transaction

import (
	"github.com/mrz1836/addrsync/internal/address"
)

// Entry is one address-value pair of a transfer.
// Inputs carry a negative value.
type Entry struct {
	Address string `json:"address"`
	Value   int64  `json:"value"`
}

// IsInput reports whether the entry spends from its address.
func (e Entry) IsInput() bool {
	return e.Value < 0
}

// Transaction is a locally known transfer.
type Transaction struct {
	Hash        string  `json:"hash"`
	Incoming    bool    `json:"incoming"`
	Persistence bool    `json:"persistence"`
	Broadcasted bool    `json:"broadcasted"`
	Inputs      []Entry `json:"inputs"`
	Outputs     []Entry `json:"outputs"`
}

// Pending reports whether the transfer is not yet confirmed.
func (t Transaction) Pending() bool {
	return !t.Persistence
}

// Value returns the sum of positive output values.
func (t Transaction) Value() int64 {
	var total int64
	for _, o := range t.Outputs {
		if o.Value > 0 {
			total += o.Value
		}
	}
	return total
}

// Entries returns inputs followed by outputs.
func (t Transaction) Entries() []Entry {
	out := make([]Entry, 0, len(t.Inputs)+len(t.Outputs))
	out = append(out, t.Inputs...)
	return append(out, t.Outputs...)
}

// Set indexes known transactions by the addresses they touch.
// The zero value and a nil *Set know no transactions.
type Set struct {
	txs     []Transaction
	touched map[string]struct{}
	spent   map[string]struct{}
}

// NewSet builds a Set from the given transactions.
func NewSet(txs []Transaction) *Set {
	s := &Set{
		txs:     txs,
		touched: make(map[string]struct{}),
		spent:   make(map[string]struct{}),
	}
	for _, tx := range txs {
		for _, e := range tx.Entries() {
			s.touched[e.Address] = struct{}{}
			if e.IsInput() {
				s.spent[e.Address] = struct{}{}
			}
		}
	}
	return s
}

// HasTransactions reports whether any known transaction touches the address.
func (s *Set) HasTransactions(addr string) bool {
	if s == nil {
		return false
	}
	_, ok := s.touched[addr]
	return ok
}

// SpentFrom reports whether the address is an input of any known transaction.
func (s *Set) SpentFrom(addr string) bool {
	if s == nil {
		return false
	}
	_, ok := s.spent[addr]
	return ok
}

// Transactions returns the indexed transactions.
func (s *Set) Transactions() []Transaction {
	if s == nil {
		return nil
	}
	return s.txs
}

// Len returns the number of indexed transactions.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.txs)
}

var _ address.History = (*Set)(nil)

// SpendStatuses reports, for each address, whether it appears as an input
// among the entries.
func SpendStatuses(addresses []string, entries []Entry) []bool {
	spent := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsInput() {
			spent[e.Address] = true
		}
	}
	out := make([]bool, len(addresses))
	for i, a := range addresses {
		out[i] = spent[a]
	}
	return out
}
