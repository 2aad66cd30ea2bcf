// Package account serializes ledger operations per account and publishes
// each account's ledger as an immutable snapshot.
package account

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/ledger"
	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/seedstore"
	"github.com/mrz1836/addrsync/internal/storage"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// Logger receives debug output from the manager.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Config contains the dependencies of a Manager.
type Config struct {
	Engine  *ledger.Engine
	Store   storage.Store
	Metrics *metrics.Metrics
	Logger  Logger
}

// Manager owns the ledgers of the accounts it has loaded. At most one
// operation runs per account at a time; readers get the last published
// snapshot and never wait.
type Manager struct {
	engine  *ledger.Engine
	store   storage.Store
	metrics *metrics.Metrics
	logger  Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// slot is the per-account serialization point.
type slot struct {
	sem      chan struct{}
	snapshot atomic.Pointer[storage.State]
}

// NewManager creates a manager.
func NewManager(cfg *Config) *Manager {
	m := &Manager{
		engine:  cfg.Engine,
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		slots:   make(map[string]*slot),
	}
	if m.metrics == nil {
		m.metrics = metrics.Global
	}
	return m
}

func (m *Manager) slot(name string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[name]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		m.slots[name] = s
	}
	return s
}

// acquire waits for exclusive use of the account, loading its state on
// first use. The returned release must be called exactly once.
func (m *Manager) acquire(ctx context.Context, name string) (*slot, *storage.State, func(), error) {
	if err := storage.ValidateAccountName(name); err != nil {
		return nil, nil, nil, err
	}
	s := m.slot(name)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, nil, syncerr.WithCause(
			syncerr.WithDetails(syncerr.ErrAccountBusy, map[string]string{"account": name}),
			ctx.Err(),
		)
	}
	release := func() { <-s.sem }

	state := s.snapshot.Load()
	if state == nil {
		loaded, err := m.store.Load(ctx, name)
		if err != nil {
			release()
			return nil, nil, nil, err
		}
		s.snapshot.Store(loaded)
		state = loaded
	}
	return s, state, release, nil
}

// commit persists state and then publishes it. Nothing is published when
// the save fails.
func (m *Manager) commit(ctx context.Context, name string, s *slot, state *storage.State) error {
	if err := m.store.Save(ctx, name, state); err != nil {
		return err
	}
	s.snapshot.Store(state)
	return nil
}

// Ledger returns a copy of the account's address records sorted by index.
func (m *Manager) Ledger(ctx context.Context, name string) ([]address.Record, error) {
	state, err := m.state(ctx, name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(state.Addresses), nil
}

// Transactions returns a copy of the account's known transactions.
func (m *Manager) Transactions(ctx context.Context, name string) ([]transaction.Transaction, error) {
	state, err := m.state(ctx, name)
	if err != nil {
		return nil, err
	}
	return slices.Clone(state.Transactions), nil
}

// state returns the published snapshot, loading it under the account lock
// when the account has not been touched yet.
func (m *Manager) state(ctx context.Context, name string) (*storage.State, error) {
	if err := storage.ValidateAccountName(name); err != nil {
		return nil, err
	}
	if state := m.slot(name).snapshot.Load(); state != nil {
		return state, nil
	}
	_, state, release, err := m.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	release()
	return state, nil
}

// Sync refreshes the account ledger against the node and persists it.
func (m *Manager) Sync(ctx context.Context, name string, seed seedstore.SeedStore) (records []address.Record, err error) {
	defer func() { m.metrics.RecordSync(err) }()

	s, state, release, err := m.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	txs := transaction.NewSet(state.Transactions)
	synced, err := m.engine.Sync(ctx, seed, state.Addresses, txs)
	if err != nil {
		m.logError("sync %s failed: %v", name, err)
		return nil, err
	}

	next := &storage.State{Addresses: synced, Transactions: state.Transactions}
	if err := m.commit(ctx, name, s, next); err != nil {
		return nil, err
	}
	m.debug("synced %s: %d addresses", name, len(synced))
	return slices.Clone(synced), nil
}

// Trim refreshes the trailing unused addresses against the node, drops all
// but the first of them and persists the result.
func (m *Manager) Trim(ctx context.Context, name string, seed seedstore.SeedStore) ([]address.Record, error) {
	s, state, release, err := m.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	trimmed, err := m.engine.TrimToFrontier(ctx, seed, state.Addresses, transaction.NewSet(state.Transactions))
	if err != nil {
		m.logError("trim %s failed: %v", name, err)
		return nil, err
	}

	next := &storage.State{Addresses: trimmed, Transactions: state.Transactions}
	if err := m.commit(ctx, name, s, next); err != nil {
		return nil, err
	}
	m.debug("trimmed %s: %d -> %d addresses", name, len(state.Addresses), len(trimmed))
	return slices.Clone(trimmed), nil
}

// Remainder selects a remainder address outside blacklist and persists any
// addresses derived while looking for it.
func (m *Manager) Remainder(ctx context.Context, name string, seed seedstore.SeedStore, blacklist []string) (string, error) {
	s, state, release, err := m.acquire(ctx, name)
	if err != nil {
		return "", err
	}
	defer release()

	txs := transaction.NewSet(state.Transactions)
	remainder, extended, err := m.engine.UpToRemainder(ctx, seed, state.Addresses, txs, blacklist)
	if err != nil {
		return "", err
	}
	if len(extended) != len(state.Addresses) {
		next := &storage.State{Addresses: extended, Transactions: state.Transactions}
		if err := m.commit(ctx, name, s, next); err != nil {
			return "", err
		}
	}
	return remainder, nil
}

// Inputs selects inputs covering amount from the current ledger.
func (m *Manager) Inputs(ctx context.Context, name string, amount int64) ([]address.Input, error) {
	_, state, release, err := m.acquire(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	selected, err := m.engine.InputsForSpend(state.Addresses, transaction.NewSet(state.Transactions), amount)
	if err != nil {
		return nil, err
	}
	return address.ToInputs(selected, m.engine.Security()), nil
}

// Attach attaches the address at index to the node and records the
// resulting transaction.
func (m *Manager) Attach(ctx context.Context, name string, seed seedstore.SeedStore, index int) (address.Record, error) {
	s, state, release, err := m.acquire(ctx, name)
	if err != nil {
		return address.Record{}, err
	}
	defer release()

	record, ok := address.ToIndexMap(state.Addresses)[index]
	if !ok {
		return address.Record{}, syncerr.WithDetails(syncerr.ErrNotFound, map[string]string{
			"account": name,
			"index":   strconv.Itoa(index),
		})
	}

	updated, attached, err := m.engine.AttachAndFormat(ctx, seed, record, transaction.NewSet(state.Transactions))
	if err != nil {
		return address.Record{}, err
	}

	next := &storage.State{
		Addresses:    address.Merge(state.Addresses, []address.Record{updated}),
		Transactions: append(slices.Clone(state.Transactions), attached...),
	}
	if err := m.commit(ctx, name, s, next); err != nil {
		return address.Record{}, err
	}
	return updated, nil
}

func (m *Manager) debug(format string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(format, args...)
	}
}

func (m *Manager) logError(format string, args ...any) {
	if m.logger != nil {
		m.logger.Error(format, args...)
	}
}
