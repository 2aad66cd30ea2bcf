// Package ledger keeps an account's address ledger consistent with the node.
//
// The Engine discovers the frontier address, reconciles local records with
// fresh remote status and selects inputs and remainder addresses. Every
// operation takes a ledger snapshot and returns a new one; on error nothing
// is returned and the caller keeps its previous snapshot.
package ledger

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/addrsync/internal/address"
	"github.com/mrz1836/addrsync/internal/transaction"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// DefaultBatchSize is the number of addresses derived per discovery step.
const DefaultBatchSize = 10

// ErrInvalidBatchSize indicates a non-positive discovery batch size.
var ErrInvalidBatchSize = &syncerr.SyncError{
	Code:     "INVALID_BATCH_SIZE",
	Message:  "discovery batch size must be positive",
	ExitCode: syncerr.ExitInput,
}

// Remote is the node capability the engine consumes.
// Results of the address queries are aligned with the input.
type Remote interface {
	QuerySpentStatus(ctx context.Context, addresses []string) ([]bool, error)
	QueryBalances(ctx context.Context, addresses []string) ([]int64, error)
	QueryTransactionHashes(ctx context.Context, addresses []string) (map[string][]string, error)
	BroadcastTransactions(ctx context.Context, payloads []string) error
}

// Logger receives debug output from the engine.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Options configures an Engine.
type Options struct {
	// BatchSize is the number of addresses derived per discovery step (default: 10).
	BatchSize int

	// Security is the security level reported on selected inputs (default: 2).
	Security int

	// Logger for debug output. May be nil.
	Logger Logger
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		BatchSize: DefaultBatchSize,
		Security:  address.DefaultSecurity,
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.BatchSize <= 0 {
		return syncerr.WithDetails(ErrInvalidBatchSize, map[string]string{
			"batch_size": strconv.Itoa(o.BatchSize),
		})
	}
	return nil
}

// Engine runs discovery, reconciliation and selection against a Remote.
// It holds no ledger state and is safe for concurrent use; serializing runs
// per account is the caller's job.
type Engine struct {
	remote    Remote
	batchSize int
	security  int
	logger    Logger
}

// NewEngine creates an engine. Zero option fields take their defaults.
func NewEngine(remote Remote, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	e := &Engine{
		remote:    remote,
		batchSize: opts.BatchSize,
		security:  opts.Security,
		logger:    opts.Logger,
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.security <= 0 {
		e.security = address.DefaultSecurity
	}
	return e
}

// Security returns the security level used for selected inputs.
func (e *Engine) Security() int {
	return e.security
}

// remoteStatus is the node's view of one address.
type remoteStatus struct {
	spent   bool
	balance int64
	hashes  int
}

// status queries spend flags, balances and transaction hashes for addrs
// concurrently and returns them in input order.
func (e *Engine) status(ctx context.Context, addrs []string) ([]remoteStatus, error) {
	var (
		spent    []bool
		balances []int64
		hashes   map[string][]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		spent, err = e.remote.QuerySpentStatus(gctx, addrs)
		return err
	})
	g.Go(func() (err error) {
		balances, err = e.remote.QueryBalances(gctx, addrs)
		return err
	})
	g.Go(func() (err error) {
		hashes, err = e.remote.QueryTransactionHashes(gctx, addrs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(spent) != len(addrs) {
		return nil, malformed(len(addrs), len(spent))
	}
	if len(balances) != len(addrs) {
		return nil, malformed(len(addrs), len(balances))
	}

	out := make([]remoteStatus, len(addrs))
	for i, a := range addrs {
		out[i] = remoteStatus{spent: spent[i], balance: balances[i], hashes: len(hashes[a])}
	}
	return out, nil
}

// newRecord builds the record of a freshly derived and queried address.
// The local flag starts from what the known transactions say.
func newRecord(index int, addr string, st remoteStatus, txs *transaction.Set) (address.Record, error) {
	sum, err := address.Checksum(addr)
	if err != nil {
		return address.Record{}, err
	}
	return address.Record{
		Index:    index,
		Address:  addr,
		Checksum: sum,
		Balance:  st.balance,
		Spent: address.SpendStatus{
			Local:  txs.SpentFrom(addr),
			Remote: st.spent,
		},
		HasTransactions: st.hashes > 0 || txs.HasTransactions(addr),
	}, nil
}

// malformed reports a remote answer that does not match the request shape.
func malformed(expected, got int) error {
	return syncerr.WithDetails(syncerr.ErrMalformedResponse, map[string]string{
		"expected": strconv.Itoa(expected),
		"got":      strconv.Itoa(got),
	})
}

// Deriver generates addresses by index. seedstore.SeedStore satisfies it.
type Deriver interface {
	GenerateAddress(ctx context.Context, index, count int) ([]string, error)
}

// derive generates count addresses at index and checks that the store
// returned exactly that many.
func derive(ctx context.Context, store Deriver, index, count int) ([]string, error) {
	addrs, err := store.GenerateAddress(ctx, index, count)
	if err != nil {
		return nil, err
	}
	if len(addrs) != count {
		return nil, syncerr.WithDetails(syncerr.ErrMetadataLengthMismatch, map[string]string{
			"requested": strconv.Itoa(count),
			"derived":   strconv.Itoa(len(addrs)),
		})
	}
	return addrs, nil
}

func (e *Engine) debug(format string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(format, args...)
	}
}
