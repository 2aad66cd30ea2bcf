// Package seedstore provides the key capability used by the ledger engines:
// deterministic address generation by index and transfer signing.
// Callers pick a variant once through New and never branch on its kind.
package seedstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Kind identifies a key storage variant.
type Kind string

// Supported kinds.
const (
	// KindKeychain derives and signs with an in-process BIP39 seed.
	KindKeychain Kind = "keychain"
	// KindWatchOnly derives from an account extended public key and cannot sign.
	KindWatchOnly Kind = "watch-only"
)

// SeedStore is the key capability consumed by discovery and remainder selection.
type SeedStore interface {
	// GenerateAddress derives count consecutive raw addresses starting at index.
	GenerateAddress(ctx context.Context, index, count int) ([]string, error)

	// SignTransfer signs a transfer with the keys of its inputs.
	SignTransfer(ctx context.Context, t *Transfer) (*SignedTransfer, error)

	// ValidateAddress checks a raw address or an address with checksum.
	ValidateAddress(addr string) error

	// Kind reports the storage variant.
	Kind() Kind
}

// Options configures a SeedStore.
type Options struct {
	// Mnemonic is the BIP39 phrase for KindKeychain.
	Mnemonic string

	// Passphrase is the optional BIP39 passphrase.
	Passphrase string

	// ExtendedKey is the account-level xpub for KindWatchOnly.
	ExtendedKey string

	// CoinType is the BIP44 coin type.
	CoinType uint32

	// Account is the BIP44 account index.
	Account uint32

	// Metrics receives the derived address count. Defaults to metrics.Global.
	Metrics *metrics.Metrics
}

func (o Options) recorder() *metrics.Metrics {
	if o.Metrics != nil {
		return o.Metrics
	}
	return metrics.Global
}

// New returns the SeedStore variant for kind.
func New(kind Kind, opts Options) (SeedStore, error) {
	switch kind {
	case KindKeychain:
		return NewKeychain(opts)
	case KindWatchOnly:
		w, err := NewWatchOnly(opts.ExtendedKey)
		if err != nil {
			return nil, err
		}
		w.metrics = opts.recorder()
		return w, nil
	default:
		return nil, syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
			"seed_store": string(kind),
		})
	}
}

// Output is a transfer destination.
type Output struct {
	Address string `json:"address"`
	Value   int64  `json:"value"`
	Tag     string `json:"tag,omitempty"`
}

// Transfer describes value moving from ledger inputs to outputs.
// Remainder receives any input value not sent to outputs.
type Transfer struct {
	Inputs    []address.Input `json:"inputs"`
	Outputs   []Output        `json:"outputs"`
	Remainder string          `json:"remainder,omitempty"`
}

// SignedTransfer is a signed transfer ready for broadcast.
type SignedTransfer struct {
	// Hash is the hex digest the signatures commit to.
	Hash string
	// Payloads are the hex-encoded transactions handed to the node.
	Payloads []string
	// Transaction is the local view of the transfer.
	Transaction transaction.Transaction
}

// ValidateRawAddress accepts a raw hex address or one followed by a valid checksum.
func ValidateRawAddress(addr string) error {
	addr = strings.ToLower(addr)
	switch len(addr) {
	case address.HexLength:
		if _, err := address.Checksum(addr); err != nil {
			return invalidAddress(addr)
		}
		return nil
	case address.HexLength + address.ChecksumLength:
		if !address.ValidChecksum(addr) {
			return invalidAddress(addr)
		}
		return nil
	default:
		return invalidAddress(addr)
	}
}

func invalidAddress(addr string) error {
	return syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
		"address": addr,
	})
}

// derivationPath returns the BIP44 path of an external address.
func derivationPath(coinType, account uint32, index int) string {
	return fmt.Sprintf("m/44'/%d'/%d'/0/%d", coinType, account, index)
}
