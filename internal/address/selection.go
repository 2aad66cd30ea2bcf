package address

// DefaultSecurity is the default signature security level attached to inputs.
const DefaultSecurity = 2

// Input is an address prepared for signing as a transfer input.
type Input struct {
	Address  string `json:"address"`
	Balance  int64  `json:"balance"`
	KeyIndex int    `json:"keyIndex"`
	Security int    `json:"security"`
}

// SelectUnspentInputs returns the records with neither spend flag set,
// keeping their relative order.
func SelectUnspentInputs(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Spent.Local && !r.Spent.Remote {
			out = append(out, r)
		}
	}
	return out
}

// WithBalance returns the records holding a positive balance.
func WithBalance(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Balance > 0 {
			out = append(out, r)
		}
	}
	return out
}

// ToInputs converts records to signing inputs with the given security level.
// A non-positive security uses DefaultSecurity.
func ToInputs(records []Record, security int) []Input {
	if security <= 0 {
		security = DefaultSecurity
	}
	inputs := make([]Input, len(records))
	for i, r := range records {
		inputs[i] = Input{
			Address:  r.Address,
			Balance:  r.Balance,
			KeyIndex: r.Index,
			Security: security,
		}
	}
	return inputs
}

// AccumulateBalance sums the balances of records.
func AccumulateBalance(records []Record) int64 {
	var total int64
	for _, r := range records {
		total += r.Balance
	}
	return total
}

// BalancesFor returns the balances of the given addresses that appear in
// records, in the order of addresses. Unknown addresses are skipped.
func BalancesFor(addresses []string, records []Record) []int64 {
	byAddress := make(map[string]int64, len(records))
	for _, r := range records {
		byAddress[r.Address] = r.Balance
	}
	out := make([]int64, 0, len(addresses))
	for _, a := range addresses {
		if bal, ok := byAddress[a]; ok {
			out = append(out, bal)
		}
	}
	return out
}

// Contains reports whether any record has the given raw address.
func Contains(records []Record, addr string) bool {
	for _, r := range records {
		if r.Address == addr {
			return true
		}
	}
	return false
}
