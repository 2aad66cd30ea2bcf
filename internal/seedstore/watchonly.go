package seedstore

import (
	"context"
	"fmt"

	"github.com/tyler-smith/go-bip32"

	"github.com/mrz1836/addrsync/internal/metrics"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// WatchOnly derives addresses from an account extended public key.
// It cannot sign.
type WatchOnly struct {
	chainKey *bip32.Key
	metrics  *metrics.Metrics
}

var _ SeedStore = (*WatchOnly)(nil)

// NewWatchOnly parses an account-level xpub.
func NewWatchOnly(xpub string) (*WatchOnly, error) {
	key, err := bip32.B58Deserialize(xpub)
	if err != nil {
		return nil, syncerr.WithCause(
			syncerr.WithSuggestion(syncerr.ErrInvalidInput, "provide the account extended public key (xpub)"),
			err,
		)
	}
	if key.IsPrivate {
		return nil, syncerr.WithSuggestion(syncerr.ErrInvalidInput,
			"expected an xpub but got a private extended key; never share private keys with a watch-only store")
	}

	chain, err := key.NewChildKey(externalChain)
	if err != nil {
		return nil, fmt.Errorf("failed to derive external chain key from xpub: %w", err)
	}
	return &WatchOnly{chainKey: chain, metrics: metrics.Global}, nil
}

// Kind reports KindWatchOnly.
func (w *WatchOnly) Kind() Kind {
	return KindWatchOnly
}

// GenerateAddress derives count consecutive addresses starting at index.
func (w *WatchOnly) GenerateAddress(ctx context.Context, index, count int) ([]string, error) {
	return generate(ctx, w.metrics, w.chainKey, index, count)
}

// ValidateAddress checks a raw address or an address with checksum.
func (w *WatchOnly) ValidateAddress(addr string) error {
	return ValidateRawAddress(addr)
}

// SignTransfer is not supported without private keys.
func (w *WatchOnly) SignTransfer(_ context.Context, _ *Transfer) (*SignedTransfer, error) {
	return nil, syncerr.ErrNotSupported
}
