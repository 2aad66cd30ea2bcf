package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// accountsBucket holds one JSON-encoded State per account name.
var accountsBucket = []byte("accounts")

// boltOpenTimeout bounds the wait for another process holding the file lock.
const boltOpenTimeout = time.Second

// BoltStore keeps all accounts in a single bbolt database.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bolt.Open(path, filePermissions, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, syncerr.WithCause(
			syncerr.WithSuggestion(syncerr.ErrAccountBusy, "another addrsync process may hold the database open"),
			err,
		)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating accounts bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// Load reads an account from the database.
func (s *BoltStore) Load(ctx context.Context, account string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	var state State
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(accountsBucket).Get([]byte(account))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &state); err != nil {
			return syncerr.WithCause(
				syncerr.WithDetails(ErrCorruptAccount, map[string]string{"account": account}), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalize(&state)
}

// Save replaces an account in a single transaction.
func (s *BoltStore) Save(ctx context.Context, account string, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	norm, err := normalize(state)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return fmt.Errorf("encoding account %s: %w", account, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).Put([]byte(account), raw)
	})
}

// Delete removes an account.
func (s *BoltStore) Delete(_ context.Context, account string) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).Delete([]byte(account))
	})
}

// List returns the stored account names. bbolt iterates keys in byte order.
func (s *BoltStore) List(_ context.Context) ([]string, error) {
	names := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
