package node

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/addrsync/internal/metrics"
	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

const (
	// DefaultMaxBatchSize is the maximum number of addresses per node command.
	DefaultMaxBatchSize = 500

	// DefaultMaxConcurrent is the number of chunks in flight at once.
	DefaultMaxConcurrent = 4
)

// BatcherOptions configures a Batcher.
type BatcherOptions struct {
	// MaxBatchSize is the maximum number of addresses per command (default: 500).
	MaxBatchSize int

	// MaxConcurrent is the number of chunks dispatched concurrently (default: 4).
	MaxConcurrent int

	// Logger for debug output.
	Logger Logger
}

// Batcher splits address queries into node commands and fans the answers
// back into per-address results aligned with the input. It holds no state
// between calls.
type Batcher struct {
	api           API
	maxBatchSize  int
	maxConcurrent int
	logger        Logger
}

// NewBatcher creates a batcher over api.
func NewBatcher(api API, opts *BatcherOptions) *Batcher {
	if opts == nil {
		opts = &BatcherOptions{}
	}
	b := &Batcher{
		api:           api,
		maxBatchSize:  opts.MaxBatchSize,
		maxConcurrent: opts.MaxConcurrent,
		logger:        opts.Logger,
	}
	if b.maxBatchSize <= 0 {
		b.maxBatchSize = DefaultMaxBatchSize
	}
	if b.maxConcurrent <= 0 {
		b.maxConcurrent = DefaultMaxConcurrent
	}
	return b
}

// API returns the underlying node capability.
func (b *Batcher) API() API {
	return b.api
}

// QuerySpentStatus returns the remote spend flag of each address.
func (b *Batcher) QuerySpentStatus(ctx context.Context, addresses []string) ([]bool, error) {
	return fanOut(ctx, b, metrics.CommandSpentStatus, addresses, b.api.WereAddressesSpentFrom)
}

// QueryBalances returns the balance of each address.
// Balances that are not non-negative integers fail with ErrMalformedResponse.
func (b *Batcher) QueryBalances(ctx context.Context, addresses []string) ([]int64, error) {
	return fanOut(ctx, b, metrics.CommandBalances, addresses, func(ctx context.Context, chunk []string) ([]int64, error) {
		raw, err := b.api.GetBalances(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out := make([]int64, len(raw))
		for i, s := range raw {
			v, perr := strconv.ParseInt(s, 10, 64)
			if perr != nil || v < 0 {
				return nil, syncerr.WithDetails(syncerr.ErrMalformedResponse, map[string]string{
					"command": metrics.CommandBalances,
					"balance": s,
				})
			}
			out[i] = v
		}
		return out, nil
	})
}

// QueryTransactionHashes returns the transaction hashes of each distinct
// address. Every input address has an entry, empty when it has no history.
// One command is issued per address so that hashes can be attributed.
func (b *Batcher) QueryTransactionHashes(ctx context.Context, addresses []string) (map[string][]string, error) {
	unique, _ := dedupe(addresses)
	hashes := make([][]string, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrent)
	for i, addr := range unique {
		g.Go(func() error {
			found, err := b.api.FindTransactions(gctx, []string{addr})
			if err != nil {
				return err
			}
			hashes[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(unique))
	for i, addr := range unique {
		if hashes[i] == nil {
			hashes[i] = []string{}
		}
		out[addr] = hashes[i]
	}
	b.debug("findTransactions: %d addresses", len(unique))
	return out, nil
}

// QueryNodeInfo returns the node's consensus progress.
func (b *Batcher) QueryNodeInfo(ctx context.Context) (*NodeInfo, error) {
	return b.api.GetNodeInfo(ctx)
}

// BroadcastTransactions hands signed payloads to the node.
func (b *Batcher) BroadcastTransactions(ctx context.Context, payloads []string) error {
	if len(payloads) == 0 {
		return nil
	}
	return b.api.BroadcastTransactions(ctx, payloads)
}

// CategoriseBySpentStatus splits addresses by their remote spend flag,
// keeping input order within each group.
func (b *Batcher) CategoriseBySpentStatus(ctx context.Context, addresses []string) (spent, unspent []string, err error) {
	states, err := b.QuerySpentStatus(ctx, addresses)
	if err != nil {
		return nil, nil, err
	}
	spent = make([]string, 0, len(addresses))
	unspent = make([]string, 0, len(addresses))
	for i, addr := range addresses {
		if states[i] {
			spent = append(spent, addr)
		} else {
			unspent = append(unspent, addr)
		}
	}
	return spent, unspent, nil
}

// IsAnySpent reports whether the node considers any of the addresses spent.
func (b *Batcher) IsAnySpent(ctx context.Context, addresses []string) (bool, error) {
	states, err := b.QuerySpentStatus(ctx, addresses)
	if err != nil {
		return false, err
	}
	for _, s := range states {
		if s {
			return true, nil
		}
	}
	return false, nil
}

// fanOut deduplicates addresses, dispatches them in chunks and maps the
// chunk answers back onto the original positions.
func fanOut[T any](ctx context.Context, b *Batcher, command string, addresses []string,
	call func(context.Context, []string) ([]T, error),
) ([]T, error) {
	if len(addresses) == 0 {
		return []T{}, nil
	}

	unique, positions := dedupe(addresses)
	results := make([]T, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxConcurrent)
	chunks := 0
	for start := 0; start < len(unique); start += b.maxBatchSize {
		end := min(start+b.maxBatchSize, len(unique))
		chunk := unique[start:end]
		chunks++

		g.Go(func() error {
			got, err := call(gctx, chunk)
			if err != nil {
				return err
			}
			if len(got) != len(chunk) {
				return syncerr.WithDetails(syncerr.ErrMalformedResponse, map[string]string{
					"command":  command,
					"expected": strconv.Itoa(len(chunk)),
					"got":      strconv.Itoa(len(got)),
				})
			}
			copy(results[start:end], got)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.debug("%s: %d addresses (%d unique) in %d chunks", command, len(addresses), len(unique), chunks)

	out := make([]T, len(addresses))
	for i, p := range positions {
		out[i] = results[p]
	}
	return out, nil
}

// dedupe returns the distinct addresses in first-seen order and, for each
// input position, the index of its address in the distinct list.
func dedupe(addresses []string) (unique []string, positions []int) {
	seen := make(map[string]int, len(addresses))
	positions = make([]int, len(addresses))
	for i, a := range addresses {
		p, ok := seen[a]
		if !ok {
			p = len(unique)
			seen[a] = p
			unique = append(unique, a)
		}
		positions[i] = p
	}
	return unique, positions
}

func (b *Batcher) debug(format string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(format, args...)
	}
}
