package address

import (
	"slices"
	"strconv"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// ToIndexMap keys records by derivation index.
// When an index repeats, the later record wins.
func ToIndexMap(records []Record) map[int]Record {
	m := make(map[int]Record, len(records))
	for _, r := range records {
		m[r.Index] = r
	}
	return m
}

// FromIndexMap returns the records of m sorted by index.
func FromIndexMap(m map[int]Record) []Record {
	out := make([]Record, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	Sort(out)
	return out
}

// Sort orders records ascending by index in place.
func Sort(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		return a.Index - b.Index
	})
}

// Sorted returns a sorted copy of records.
func Sorted(records []Record) []Record {
	out := slices.Clone(records)
	Sort(out)
	return out
}

// Merge folds incoming records into existing ones.
// For a shared index the incoming address, checksum, balance and remote
// spend flag replace the existing values while the local spend flag and
// transaction history are OR-ed. Records only present in existing are kept
// untouched. The result is sorted by index.
func Merge(existing, incoming []Record) []Record {
	byIndex := ToIndexMap(existing)
	for _, in := range incoming {
		if cur, ok := byIndex[in.Index]; ok {
			in.Spent.Local = in.Spent.Local || cur.Spent.Local
			in.HasTransactions = in.HasTransactions || cur.HasTransactions
		}
		byIndex[in.Index] = in
	}
	return FromIndexMap(byIndex)
}

// PreserveLocalSpendStatus returns incoming with each local spend flag
// OR-ed with the flag of the existing record at the same index.
// Existing records missing from incoming are not added.
func PreserveLocalSpendStatus(existing, incoming []Record) []Record {
	byIndex := ToIndexMap(existing)
	out := make([]Record, len(incoming))
	for i, in := range incoming {
		if cur, ok := byIndex[in.Index]; ok && cur.Spent.Local {
			in.Spent.Local = true
		}
		out[i] = in
	}
	return out
}

// CreateRecords zips parallel metadata slices into records.
// A nil indices slice assigns positional indices. Every supplied slice must
// have the same length as addresses.
func CreateRecords(addresses []string, balances []int64, spent []SpendStatus, indices []int) ([]Record, error) {
	n := len(addresses)
	if len(balances) != n || len(spent) != n || (indices != nil && len(indices) != n) {
		details := map[string]string{
			"addresses": strconv.Itoa(n),
			"balances":  strconv.Itoa(len(balances)),
			"spent":     strconv.Itoa(len(spent)),
		}
		if indices != nil {
			details["indices"] = strconv.Itoa(len(indices))
		}
		return nil, syncerr.WithDetails(syncerr.ErrMetadataLengthMismatch, details)
	}

	records := make([]Record, n)
	for i, addr := range addresses {
		sum, err := Checksum(addr)
		if err != nil {
			return nil, err
		}
		idx := i
		if indices != nil {
			idx = indices[i]
		}
		records[i] = Record{
			Index:    idx,
			Address:  addr,
			Checksum: sum,
			Balance:  balances[i],
			Spent:    spent[i],
		}
	}
	return records, nil
}

// Latest returns the record with the highest index.
func Latest(records []Record) (Record, bool) {
	if len(records) == 0 {
		return Record{}, false
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Index > latest.Index {
			latest = r
		}
	}
	return latest, true
}

// LatestAddress returns the address of the highest-index record, optionally
// followed by its checksum. It returns an empty string for an empty ledger.
func LatestAddress(records []Record, withChecksum bool) string {
	latest, ok := Latest(records)
	if !ok {
		return ""
	}
	if withChecksum {
		return latest.Address + latest.Checksum
	}
	return latest.Address
}

// Addresses returns the raw addresses of records in order.
func Addresses(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Address
	}
	return out
}

// CheckDense verifies that sorted records cover indices 0..N-1 exactly once.
func CheckDense(records []Record) error {
	for i, r := range records {
		if r.Index != i {
			return syncerr.WithDetails(syncerr.ErrLedgerGap, map[string]string{
				"expected_index": strconv.Itoa(i),
				"got_index":      strconv.Itoa(r.Index),
			})
		}
	}
	return nil
}
