package seedstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/sha3"

	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Keychain derives addresses and signs transfers with an in-process seed.
type Keychain struct {
	coinType uint32
	account  uint32
	acctKey  *bip32.Key
	chainKey *bip32.Key
	metrics  *metrics.Metrics
}

var _ SeedStore = (*Keychain)(nil)

// NewKeychain builds a keychain from the BIP39 mnemonic in opts.
func NewKeychain(opts Options) (*Keychain, error) {
	if err := ValidateMnemonic(opts.Mnemonic); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(NormalizeMnemonic(opts.Mnemonic), opts.Passphrase)
	defer zero(seed)

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	acct, err := accountKey(master, opts.CoinType, opts.Account)
	if err != nil {
		return nil, err
	}
	chain, err := acct.NewChildKey(externalChain)
	if err != nil {
		return nil, fmt.Errorf("failed to derive external chain key: %w", err)
	}

	return &Keychain{
		coinType: opts.CoinType,
		account:  opts.Account,
		acctKey:  acct,
		chainKey: chain,
		metrics:  opts.recorder(),
	}, nil
}

// Kind reports KindKeychain.
func (k *Keychain) Kind() Kind {
	return KindKeychain
}

// GenerateAddress derives count consecutive addresses starting at index.
func (k *Keychain) GenerateAddress(ctx context.Context, index, count int) ([]string, error) {
	return generate(ctx, k.metrics, k.chainKey, index, count)
}

// ValidateAddress checks a raw address or an address with checksum.
func (k *Keychain) ValidateAddress(addr string) error {
	return ValidateRawAddress(addr)
}

// AccountXPub returns the serialized account-level extended public key,
// suitable for a watch-only store.
func (k *Keychain) AccountXPub() string {
	return k.acctKey.PublicKey().B58Serialize()
}

// Path returns the derivation path of the address at index.
func (k *Keychain) Path(index int) string {
	return derivationPath(k.coinType, k.account, index)
}

// signedEnvelope is the broadcast encoding of a signed transfer.
type signedEnvelope struct {
	Entries    []transaction.Entry `json:"entries"`
	Signatures []string            `json:"signatures"`
}

// SignTransfer signs t. Every input must belong to this keychain at its
// key index and input value must cover the outputs; surplus goes to the
// remainder address.
func (k *Keychain) SignTransfer(ctx context.Context, t *Transfer) (*SignedTransfer, error) {
	if t == nil || len(t.Outputs) == 0 {
		return nil, syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{"transfer": "no outputs"})
	}

	entries, tx, err := k.layout(t)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encoding transfer: %w", err)
	}
	digest := sha3.Sum256(body)

	signatures := make([]string, 0, len(t.Inputs))
	for _, in := range t.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sig, err := k.sign(in.KeyIndex, in.Address, digest[:])
		if err != nil {
			return nil, err
		}
		signatures = append(signatures, sig)
	}

	payload, err := json.Marshal(signedEnvelope{Entries: entries, Signatures: signatures})
	if err != nil {
		return nil, fmt.Errorf("encoding signed transfer: %w", err)
	}

	tx.Hash = hex.EncodeToString(digest[:])
	return &SignedTransfer{
		Hash:        tx.Hash,
		Payloads:    []string{hex.EncodeToString(payload)},
		Transaction: tx,
	}, nil
}

// layout validates t and orders its entries: inputs, outputs, remainder.
func (k *Keychain) layout(t *Transfer) ([]transaction.Entry, transaction.Transaction, error) {
	var tx transaction.Transaction
	var in, out int64

	for _, i := range t.Inputs {
		if err := ValidateRawAddress(i.Address); err != nil {
			return nil, tx, err
		}
		in += i.Balance
		tx.Inputs = append(tx.Inputs, transaction.Entry{Address: i.Address, Value: -i.Balance})
	}
	for _, o := range t.Outputs {
		if err := ValidateRawAddress(o.Address); err != nil {
			return nil, tx, err
		}
		if o.Value < 0 {
			return nil, tx, syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
				"output_value": strconv.FormatInt(o.Value, 10),
			})
		}
		out += o.Value
		tx.Outputs = append(tx.Outputs, transaction.Entry{Address: o.Address, Value: o.Value})
	}

	if out > in {
		return nil, tx, syncerr.WithDetails(syncerr.ErrInsufficientFunds, map[string]string{
			"inputs":  strconv.FormatInt(in, 10),
			"outputs": strconv.FormatInt(out, 10),
		})
	}
	if surplus := in - out; surplus > 0 {
		if t.Remainder == "" {
			return nil, tx, syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
				"remainder": "required for surplus " + strconv.FormatInt(surplus, 10),
			})
		}
		if err := ValidateRawAddress(t.Remainder); err != nil {
			return nil, tx, err
		}
		tx.Outputs = append(tx.Outputs, transaction.Entry{Address: t.Remainder, Value: surplus})
	}

	return tx.Entries(), tx, nil
}

// sign signs digest with the key at index after checking it controls addr.
func (k *Keychain) sign(index int, addr string, digest []byte) (string, error) {
	if index < 0 {
		return "", syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{"key_index": strconv.Itoa(index)})
	}
	child, err := k.chainKey.NewChildKey(uint32(index)) //nolint:gosec // checked non-negative
	if err != nil {
		return "", fmt.Errorf("deriving key %d: %w", index, err)
	}
	if addressFromPublicKey(child.PublicKey().Key) != addr {
		return "", syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{
			"address":   addr,
			"key_index": strconv.Itoa(index),
		})
	}

	priv := secp256k1.PrivKeyFromBytes(child.Key)
	defer priv.Zero()
	return hex.EncodeToString(ecdsa.Sign(priv, digest).Serialize()), nil
}

// VerifySignature checks a hex signature over digest against a compressed public key.
func VerifySignature(pubKey []byte, digest []byte, sigHex string) bool {
	raw, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(raw)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}

// PublicKey returns the compressed public key at index.
func (k *Keychain) PublicKey(index int) ([]byte, error) {
	if index < 0 {
		return nil, syncerr.ErrInvalidInput
	}
	child, err := k.chainKey.NewChildKey(uint32(index)) //nolint:gosec // checked non-negative
	if err != nil {
		return nil, err
	}
	return child.PublicKey().Key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
