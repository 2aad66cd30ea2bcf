package seedstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/metrics"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testKeychain(t *testing.T) *Keychain {
	t.Helper()
	k, err := NewKeychain(Options{Mnemonic: testMnemonic})
	require.NoError(t, err)
	return k
}

func TestNewFactory(t *testing.T) {
	t.Parallel()
	store, err := New(KindKeychain, Options{Mnemonic: testMnemonic})
	require.NoError(t, err)
	assert.Equal(t, KindKeychain, store.Kind())

	k := testKeychain(t)
	watch, err := New(KindWatchOnly, Options{ExtendedKey: k.AccountXPub()})
	require.NoError(t, err)
	assert.Equal(t, KindWatchOnly, watch.Kind())

	_, err = New(Kind("hardware"), Options{})
	require.ErrorIs(t, err, syncerr.ErrInvalidInput)
}

func TestGenerateAddressDeterministic(t *testing.T) {
	t.Parallel()
	k := testKeychain(t)
	ctx := context.Background()

	batch, err := k.GenerateAddress(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, a := range batch {
		assert.Len(t, a, address.HexLength)
		_, err := hex.DecodeString(a)
		require.NoError(t, err)

		single, err := k.GenerateAddress(ctx, i, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{a}, single)
	}
	assert.NotEqual(t, batch[0], batch[1])

	again := testKeychain(t)
	same, err := again.GenerateAddress(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, batch, same)
}

func TestGenerateAddressDefaultsCountToOne(t *testing.T) {
	t.Parallel()
	got, err := testKeychain(t).GenerateAddress(context.Background(), 5, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestGenerateAddressAccountsDiffer(t *testing.T) {
	t.Parallel()
	other, err := NewKeychain(Options{Mnemonic: testMnemonic, Account: 1})
	require.NoError(t, err)

	a, err := testKeychain(t).GenerateAddress(context.Background(), 0, 1)
	require.NoError(t, err)
	b, err := other.GenerateAddress(context.Background(), 0, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "m/44'/0'/1'/0/7", other.Path(7))
}

func TestGenerateAddressErrors(t *testing.T) {
	t.Parallel()
	k := testKeychain(t)

	_, err := k.GenerateAddress(context.Background(), -1, 1)
	require.ErrorIs(t, err, syncerr.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = k.GenerateAddress(ctx, 0, 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWatchOnlyMatchesKeychain(t *testing.T) {
	t.Parallel()
	k := testKeychain(t)
	w, err := NewWatchOnly(k.AccountXPub())
	require.NoError(t, err)

	want, err := k.GenerateAddress(context.Background(), 0, 5)
	require.NoError(t, err)
	got, err := w.GenerateAddress(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = w.SignTransfer(context.Background(), &Transfer{})
	require.ErrorIs(t, err, syncerr.ErrNotSupported)
}

func TestDerivationRecordsInjectedMetrics(t *testing.T) {
	t.Parallel()
	m := &metrics.Metrics{}
	store, err := New(KindKeychain, Options{Mnemonic: testMnemonic, Metrics: m})
	require.NoError(t, err)

	_, err = store.GenerateAddress(context.Background(), 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Snapshot().AddressesDerived)

	watch, err := New(KindWatchOnly, Options{
		ExtendedKey: store.(*Keychain).AccountXPub(),
		Metrics:     m,
	})
	require.NoError(t, err)
	_, err = watch.GenerateAddress(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.Snapshot().AddressesDerived)
}

func TestWatchOnlyRejectsBadKeys(t *testing.T) {
	t.Parallel()
	// BIP32 test vector 1 master xpub with the last character altered.
	corrupt := "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet9"
	_, err := NewWatchOnly(corrupt)
	require.ErrorIs(t, err, syncerr.ErrInvalidInput)

	k := testKeychain(t)
	_, err = NewWatchOnly(k.acctKey.B58Serialize())
	require.ErrorIs(t, err, syncerr.ErrInvalidInput)
}

func TestInvalidMnemonic(t *testing.T) {
	t.Parallel()
	_, err := NewKeychain(Options{Mnemonic: ""})
	require.ErrorIs(t, err, syncerr.ErrInvalidMnemonic)

	typo := strings.Replace(testMnemonic, "abandon", "abandn", 1)
	_, err = NewKeychain(Options{Mnemonic: typo})
	require.ErrorIs(t, err, syncerr.ErrInvalidMnemonic)

	var se *syncerr.SyncError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Suggestion, "word 1")
	assert.Contains(t, se.Suggestion, "did you mean 'abandon'")

	badChecksum := strings.Replace(testMnemonic, "about", "abandon", 1)
	require.ErrorIs(t, ValidateMnemonic(badChecksum), syncerr.ErrInvalidMnemonic)
}

func TestNormalizeMnemonic(t *testing.T) {
	t.Parallel()
	in := "1. Abandon\n2. abandon,  abandon"
	assert.Equal(t, "abandon abandon abandon", NormalizeMnemonic(in))
}

func TestSuggestWord(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abandon", SuggestWord("abandon"))
	assert.Equal(t, "abandon", SuggestWord("abandn"))
	assert.Empty(t, SuggestWord("zzzzzzzzzz"))
}

func TestSignTransfer(t *testing.T) {
	t.Parallel()
	k := testKeychain(t)
	ctx := context.Background()
	addrs, err := k.GenerateAddress(ctx, 0, 3)
	require.NoError(t, err)

	signed, err := k.SignTransfer(ctx, &Transfer{
		Inputs:    []address.Input{{Address: addrs[0], Balance: 10, KeyIndex: 0, Security: 2}},
		Outputs:   []Output{{Address: addrs[1], Value: 4}},
		Remainder: addrs[2],
	})
	require.NoError(t, err)
	require.Len(t, signed.Payloads, 1)

	tx := signed.Transaction
	assert.Equal(t, signed.Hash, tx.Hash)
	require.Len(t, tx.Outputs, 2)
	assert.Equal(t, int64(6), tx.Outputs[1].Value)
	assert.Equal(t, addrs[2], tx.Outputs[1].Address)
	assert.Equal(t, int64(-10), tx.Inputs[0].Value)

	raw, err := hex.DecodeString(signed.Payloads[0])
	require.NoError(t, err)
	var env signedEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Len(t, env.Signatures, 1)

	digest, err := hex.DecodeString(signed.Hash)
	require.NoError(t, err)
	pub, err := k.PublicKey(0)
	require.NoError(t, err)
	assert.True(t, VerifySignature(pub, digest, env.Signatures[0]))

	other, err := k.PublicKey(1)
	require.NoError(t, err)
	assert.False(t, VerifySignature(other, digest, env.Signatures[0]))
}

func TestSignTransferZeroValue(t *testing.T) {
	t.Parallel()
	k := testKeychain(t)
	addrs, err := k.GenerateAddress(context.Background(), 4, 1)
	require.NoError(t, err)

	signed, err := k.SignTransfer(context.Background(), &Transfer{
		Outputs: []Output{{Address: addrs[0], Value: 0}},
	})
	require.NoError(t, err)
	assert.Empty(t, signed.Transaction.Inputs)
	require.Len(t, signed.Transaction.Outputs, 1)
	assert.Len(t, signed.Hash, 64)
}

func TestSignTransferRejects(t *testing.T) {
	t.Parallel()
	k := testKeychain(t)
	ctx := context.Background()
	addrs, err := k.GenerateAddress(ctx, 0, 3)
	require.NoError(t, err)

	tests := []struct {
		name     string
		transfer *Transfer
		want     error
	}{
		{"nil transfer", nil, syncerr.ErrInvalidInput},
		{"no outputs", &Transfer{}, syncerr.ErrInvalidInput},
		{
			"insufficient funds",
			&Transfer{
				Inputs:  []address.Input{{Address: addrs[0], Balance: 1, KeyIndex: 0}},
				Outputs: []Output{{Address: addrs[1], Value: 5}},
			},
			syncerr.ErrInsufficientFunds,
		},
		{
			"surplus without remainder",
			&Transfer{
				Inputs:  []address.Input{{Address: addrs[0], Balance: 9, KeyIndex: 0}},
				Outputs: []Output{{Address: addrs[1], Value: 5}},
			},
			syncerr.ErrInvalidInput,
		},
		{
			"key index does not own address",
			&Transfer{
				Inputs:  []address.Input{{Address: addrs[0], Balance: 5, KeyIndex: 2}},
				Outputs: []Output{{Address: addrs[1], Value: 5}},
			},
			syncerr.ErrInvalidInput,
		},
		{
			"bad output address",
			&Transfer{Outputs: []Output{{Address: "nothex", Value: 0}}},
			syncerr.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := k.SignTransfer(ctx, tt.transfer)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateRawAddress(t *testing.T) {
	t.Parallel()
	raw := strings.Repeat("a", address.HexLength)
	require.NoError(t, ValidateRawAddress(raw))
	require.NoError(t, ValidateRawAddress(raw+"f5541cc3"))
	require.NoError(t, ValidateRawAddress(strings.ToUpper(raw)))
	require.ErrorIs(t, ValidateRawAddress(raw+"00000000"), syncerr.ErrInvalidInput)
	require.ErrorIs(t, ValidateRawAddress("abc"), syncerr.ErrInvalidInput)
}
