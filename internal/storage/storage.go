// Package storage persists account ledgers. Records are always written and
// read sorted by index.
package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mrz1836/go-sanitize"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Backend names.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// maxAccountName is the longest accepted account name.
const maxAccountName = 64

// State is everything persisted for one account.
type State struct {
	Addresses    []address.Record          `json:"addresses"`
	Transactions []transaction.Transaction `json:"transactions,omitempty"`
}

// Store loads and saves account state.
type Store interface {
	// Load returns the account state. A missing account yields an empty state.
	Load(ctx context.Context, account string) (*State, error)

	// Save replaces the account state.
	Save(ctx context.Context, account string, state *State) error

	// Delete removes the account. Deleting a missing account is not an error.
	Delete(ctx context.Context, account string) error

	// List returns the stored account names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Close releases the backend.
	Close() error
}

// New opens the named backend rooted at dir.
func New(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dir, "accounts")), nil
	case BackendBolt:
		return OpenBoltStore(filepath.Join(dir, "addrsync.db"))
	default:
		return nil, syncerr.WithDetails(syncerr.ErrConfigInvalid, map[string]string{
			"storage.backend": backend,
		})
	}
}

// ValidateAccountName accepts 1-64 ASCII letters, digits, hyphens and
// underscores.
func ValidateAccountName(name string) error {
	if name == "" || len(name) > maxAccountName || sanitize.PathName(name) != name {
		err := syncerr.WithDetails(syncerr.ErrInvalidInput, map[string]string{"account": name})
		if s := sanitize.PathName(name); s != "" && len(s) <= maxAccountName {
			err = syncerr.WithSuggestion(err, fmt.Sprintf("try %q", s))
		}
		return err
	}
	return nil
}

// normalize sorts the addresses of state and validates them.
func normalize(state *State) (*State, error) {
	if state == nil {
		return &State{}, nil
	}
	out := &State{
		Addresses:    address.Sorted(state.Addresses),
		Transactions: state.Transactions,
	}
	if err := address.ValidateAll(out.Addresses); err != nil {
		return nil, err
	}
	return out, nil
}
