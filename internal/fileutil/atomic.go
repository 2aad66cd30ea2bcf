// Package fileutil provides the atomic write and quarantine helpers used by
// the account and config files.
package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic replaces path with data. The bytes go to a temp file in the
// same directory which is synced and renamed over path, so readers see
// either the old or the new content.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting temp file permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path is built by the caller
		return fmt.Errorf("renaming temp file: %w", err)
	}

	// Best effort: persist the rename.
	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from path
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// WriteJSONAtomic creates the parent directory with dirPerm if needed and
// atomically writes v as indented JSON.
func WriteJSONAtomic(path string, v any, perm, dirPerm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return WriteAtomic(path, data, perm)
}

// MoveAside renames an unreadable file to <path>.corrupt.<nanos> and
// returns the new path.
func MoveAside(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	dest := fmt.Sprintf("%s.corrupt.%d", path, time.Now().UTC().UnixNano())
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("moving %s aside: %w", filepath.Base(path), err)
	}
	return dest, nil
}
