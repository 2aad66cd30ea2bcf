package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrz1836/addrsync/internal/fileutil"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

const (
	// filePermissions is the permission mode for account files.
	filePermissions = 0o600

	// dirPermissions is the permission mode for the accounts directory.
	dirPermissions = 0o700

	fileExt = ".json"
)

// ErrCorruptAccount indicates an account file could not be decoded.
var ErrCorruptAccount = &syncerr.SyncError{
	Code:       "CORRUPT_ACCOUNT",
	Message:    "account file is corrupted",
	Suggestion: "the file was moved aside; run sync to rebuild the ledger from the node",
	ExitCode:   syncerr.ExitGeneral,
}

// FileStore keeps one JSON file per account in a directory.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the accounts directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(account string) string {
	return filepath.Join(s.dir, account+fileExt)
}

// Load reads an account file. An undecodable file is moved aside and
// reported with ErrCorruptAccount.
func (s *FileStore) Load(ctx context.Context, account string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	path := s.path(account)
	data, err := os.ReadFile(path) //nolint:gosec // G304: name validated above
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading account file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		details := map[string]string{"account": account}
		if moved, mvErr := fileutil.MoveAside(path); mvErr == nil {
			details["moved_to"] = moved
		}
		return nil, syncerr.WithCause(syncerr.WithDetails(ErrCorruptAccount, details), err)
	}
	return normalize(&state)
}

// Save writes the account file atomically.
func (s *FileStore) Save(ctx context.Context, account string, state *State) error {
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
	if err := fileutil.WriteJSONAtomic(s.path(account), norm, filePermissions, dirPermissions); err != nil {
		return fmt.Errorf("saving account %s: %w", account, err)
	}
	return nil
}

// Delete removes the account file.
func (s *FileStore) Delete(_ context.Context, account string) error {
	if err := ValidateAccountName(account); err != nil {
		return err
	}
	if err := os.Remove(s.path(account)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing account file: %w", err)
	}
	return nil
}

// List returns the names of the account files.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), fileExt)
		if e.IsDir() || !ok || ValidateAccountName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
