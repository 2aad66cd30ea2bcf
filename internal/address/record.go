// Package address provides the address ledger data model and the pure
// transformations applied to it: checksums, index maps, merging, ordering,
// and input filtering.
package address

import (
	"encoding/hex"
	"strconv"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// HexLength is the length of a raw address in hex characters.
const HexLength = 64

// SpendStatus holds the two spend flags of an address.
// Local is set by this client once it observes the address as an input and
// is never cleared. Remote mirrors the latest node answer.
type SpendStatus struct {
	Local  bool `json:"local"`
	Remote bool `json:"remote"`
}

// Any reports whether either flag is set.
func (s SpendStatus) Any() bool {
	return s.Local || s.Remote
}

// Record is one derived address and its metadata.
type Record struct {
	Index           int         `json:"index"`
	Address         string      `json:"address"`
	Checksum        string      `json:"checksum"`
	Balance         int64       `json:"balance"`
	Spent           SpendStatus `json:"spent"`
	HasTransactions bool        `json:"has_transactions,omitempty"`
}

// History reports locally known transaction involvement for an address.
// A nil History is treated as knowing no transactions.
type History interface {
	HasTransactions(address string) bool
}

// IsUsed reports whether the record can no longer serve as the frontier.
// An address is used when it holds a balance, is spent according to either
// flag, or has at least one associated transaction.
func IsUsed(r Record, h History) bool {
	if r.Balance > 0 || r.Spent.Any() || r.HasTransactions {
		return true
	}
	return h != nil && h.HasTransactions(r.Address)
}

// Validate checks that a record carries the required fields.
func Validate(r Record) error {
	if r.Index < 0 || r.Balance < 0 {
		return syncerr.WithDetails(syncerr.ErrInvalidAddressRecord, map[string]string{
			"address": r.Address,
		})
	}
	if !isRawAddress(r.Address) {
		return syncerr.WithDetails(syncerr.ErrInvalidAddressRecord, map[string]string{
			"address": r.Address,
		})
	}
	if r.Checksum != "" {
		sum, err := Checksum(r.Address)
		if err != nil || sum != r.Checksum {
			return syncerr.WithDetails(syncerr.ErrInvalidAddressRecord, map[string]string{
				"address":  r.Address,
				"checksum": r.Checksum,
			})
		}
	}
	return nil
}

// ValidateAll validates every record and checks that indices are unique.
func ValidateAll(records []Record) error {
	seen := make(map[int]struct{}, len(records))
	for _, r := range records {
		if err := Validate(r); err != nil {
			return err
		}
		if _, dup := seen[r.Index]; dup {
			return syncerr.WithDetails(syncerr.ErrLedgerGap, map[string]string{
				"duplicate_index": strconv.Itoa(r.Index),
			})
		}
		seen[r.Index] = struct{}{}
	}
	return nil
}

func isRawAddress(s string) bool {
	if len(s) != HexLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
