package seedstore

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/tyler-smith/go-bip32"
	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/addrsync/internal/metrics"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// externalChain is the BIP44 change level used for ledger addresses.
const externalChain = 0

// addressFromPublicKey hashes a compressed public key into a raw address.
func addressFromPublicKey(compressed []byte) string {
	sum := sha3.Sum256(compressed)
	return hex.EncodeToString(sum[:])
}

// accountKey derives m/44'/coin'/account' from a master key.
func accountKey(master *bip32.Key, coinType, account uint32) (*bip32.Key, error) {
	purpose, err := master.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, fmt.Errorf("failed to derive purpose key: %w", err)
	}
	coin, err := purpose.NewChildKey(bip32.FirstHardenedChild + coinType)
	if err != nil {
		return nil, fmt.Errorf("failed to derive coin type key: %w", err)
	}
	acct, err := coin.NewChildKey(bip32.FirstHardenedChild + account)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account key: %w", err)
	}
	return acct, nil
}

// generate derives count addresses from the external chain key, checking
// ctx between derivations, and records the count in m.
func generate(ctx context.Context, m *metrics.Metrics, chainKey *bip32.Key, index, count int) ([]string, error) {
	if index < 0 || int64(index)+int64(count) > int64(bip32.FirstHardenedChild) {
		return nil, syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
			"index": fmt.Sprint(index),
		})
	}
	if count < 1 {
		count = 1
	}

	out := make([]string, 0, count)
	for i := index; i < index+count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := chainKey.NewChildKey(uint32(i)) //nolint:gosec // bounded above
		if err != nil {
			return nil, fmt.Errorf("deriving address %d: %w", i, err)
		}
		pub := child.PublicKey()
		out = append(out, addressFromPublicKey(pub.Key))
	}
	m.RecordDerived(len(out))
	return out, nil
}
