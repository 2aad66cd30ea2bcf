// Package node talks to the ledger node over its JSON command protocol and
// batches address queries against it.
package node

import (
	"context"
)

// DefaultAPIVersion is sent in the API version header when none is configured.
const DefaultAPIVersion = "1"

// balanceThreshold is the confirmation threshold sent with getBalances.
const balanceThreshold = 100

// API is the node capability the batcher and the ledger engines consume.
type API interface {
	WereAddressesSpentFrom(ctx context.Context, addresses []string) ([]bool, error)
	GetBalances(ctx context.Context, addresses []string) ([]string, error)
	FindTransactions(ctx context.Context, addresses []string) ([]string, error)
	GetNodeInfo(ctx context.Context) (*NodeInfo, error)
	BroadcastTransactions(ctx context.Context, txs []string) error
}

// Logger is the logging dependency of this package.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// NodeInfo is the node's view of consensus progress.
//
//nolint:revive // NodeInfo reads better at call sites than node.Info
type NodeInfo struct {
	AppVersion                string `json:"appVersion"`
	CurrentRoundIndex         int64  `json:"currentRoundIndex"`
	LatestSolidRoundHash      string `json:"latestSolidRoundHash"`
	LatestSolidRoundIndex     int64  `json:"latestSolidRoundIndex"`
	RoundStartIndex           int64  `json:"roundStartIndex"`
	LastSnapshottedRoundIndex int64  `json:"lastSnapshottedRoundIndex"`
}

type addressesRequest struct {
	Command   string   `json:"command"`
	Addresses []string `json:"addresses"`
}

type balancesRequest struct {
	Command   string   `json:"command"`
	Addresses []string `json:"addresses"`
	Threshold int      `json:"threshold"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type broadcastRequest struct {
	Command string   `json:"command"`
	Txs     []string `json:"txs"`
}

type spentResponse struct {
	States []bool `json:"states"`
}

type balancesResponse struct {
	Balances []string `json:"balances"`
}

type hashesResponse struct {
	Hashes []string `json:"hashes"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Exception string `json:"exception"`
}
