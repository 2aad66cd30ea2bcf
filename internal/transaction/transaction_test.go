package transaction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/addrsync/internal/address"
)

var (
	addrA = strings.Repeat("a", address.HexLength)
	addrB = strings.Repeat("b", address.HexLength)
	addrC = strings.Repeat("c", address.HexLength)
	addrD = strings.Repeat("d", address.HexLength)
)

func records(addrs ...string) []address.Record {
	out := make([]address.Record, len(addrs))
	for i, a := range addrs {
		out[i] = address.Record{Index: i, Address: a, Checksum: address.MustChecksum(a)}
	}
	return out
}

func TestSpendStatuses(t *testing.T) {
	t.Parallel()
	entries := []Entry{
		{Address: addrA, Value: -1},
		{Address: addrB, Value: 0},
		{Address: addrB, Value: -1},
		{Address: addrC, Value: 0},
	}

	got := SpendStatuses([]string{addrA, addrB, addrC}, entries)
	assert.Equal(t, []bool{true, true, false}, got)
}

func TestSet(t *testing.T) {
	t.Parallel()
	set := NewSet([]Transaction{{
		Hash:    "h1",
		Inputs:  []Entry{{Address: addrA, Value: -5}},
		Outputs: []Entry{{Address: addrB, Value: 5}},
	}})

	assert.True(t, set.HasTransactions(addrA))
	assert.True(t, set.HasTransactions(addrB))
	assert.False(t, set.HasTransactions(addrC))
	assert.True(t, set.SpentFrom(addrA))
	assert.False(t, set.SpentFrom(addrB))
	assert.Equal(t, 1, set.Len())
}

func TestNilSet(t *testing.T) {
	t.Parallel()
	var set *Set
	assert.False(t, set.HasTransactions(addrA))
	assert.False(t, set.SpentFrom(addrA))
	assert.Nil(t, set.Transactions())
	assert.Zero(t, set.Len())

	// A nil *Set still counts as no history when used through the interface.
	assert.False(t, address.IsUsed(records(addrA)[0], set))
}

func pendingFixture() []Transaction {
	return []Transaction{
		{
			Hash:     "incoming-pending",
			Incoming: true,
			Outputs:  []Entry{{Address: addrB, Value: 10}},
		},
		{
			Hash:        "incoming-confirmed",
			Incoming:    true,
			Persistence: true,
			Outputs:     []Entry{{Address: addrA, Value: 10}},
		},
		{
			Hash:    "outgoing-pending",
			Inputs:  []Entry{{Address: addrC, Value: -4}},
			Outputs: []Entry{{Address: addrD, Value: 4}},
		},
		{
			Hash:     "incoming-zero-value",
			Incoming: true,
			Outputs:  []Entry{{Address: addrD, Value: 0}},
		},
	}
}

func TestFilterPendingIncoming(t *testing.T) {
	t.Parallel()
	ledger := records(addrA, addrB, addrC, addrD)

	assert.Empty(t, FilterPendingIncoming(nil, pendingFixture()))
	assert.Equal(t, ledger, FilterPendingIncoming(ledger, nil))

	got := FilterPendingIncoming(ledger, pendingFixture())
	require.Len(t, got, 3)
	assert.False(t, address.Contains(got, addrB))
}

func TestFilterPendingOutgoing(t *testing.T) {
	t.Parallel()
	ledger := records(addrA, addrB, addrC, addrD)

	got := FilterPendingOutgoing(ledger, pendingFixture())
	require.Len(t, got, 3)
	assert.False(t, address.Contains(got, addrC))
	assert.True(t, address.Contains(got, addrD))
}

func TestTransactionValue(t *testing.T) {
	t.Parallel()
	tx := Transaction{
		Inputs:  []Entry{{Address: addrA, Value: -7}},
		Outputs: []Entry{{Address: addrB, Value: 5}, {Address: addrC, Value: 2}},
	}
	assert.Equal(t, int64(7), tx.Value())
	assert.True(t, tx.Pending())
	assert.Len(t, tx.Entries(), 3)
}
