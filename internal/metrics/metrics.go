// Package metrics provides application-level metrics collection.
// Counters are plain atomics; collector.go exports them to Prometheus.
package metrics

import (
	"sync/atomic"
	"time"
)

// Node command names tracked individually.
const (
	CommandSpentStatus  = "wereAddressesSpentFrom"
	CommandBalances     = "getBalances"
	CommandFindTxs      = "findTransactions"
	CommandNodeInfo     = "getNodeInfo"
	CommandBroadcastTxs = "broadcastTransactions"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Node metrics
	nodeCallsTotal   atomic.Int64
	nodeErrorsTotal  atomic.Int64
	nodeLatencyNanos atomic.Int64

	// Per-command node calls
	spentStatusCalls atomic.Int64
	balanceCalls     atomic.Int64
	findTxCalls      atomic.Int64
	nodeInfoCalls    atomic.Int64
	broadcastCalls   atomic.Int64

	// Ledger metrics
	syncRunsTotal    atomic.Int64
	syncErrorsTotal  atomic.Int64
	addressesDerived atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordNodeCall records a node command with its duration and outcome.
func (m *Metrics) RecordNodeCall(command string, duration time.Duration, err error) {
	m.nodeCallsTotal.Add(1)
	m.nodeLatencyNanos.Add(duration.Nanoseconds())

	if err != nil {
		m.nodeErrorsTotal.Add(1)
	}

	switch command {
	case CommandSpentStatus:
		m.spentStatusCalls.Add(1)
	case CommandBalances:
		m.balanceCalls.Add(1)
	case CommandFindTxs:
		m.findTxCalls.Add(1)
	case CommandNodeInfo:
		m.nodeInfoCalls.Add(1)
	case CommandBroadcastTxs:
		m.broadcastCalls.Add(1)
	}
}

// RecordSync records a ledger sync run.
func (m *Metrics) RecordSync(err error) {
	m.syncRunsTotal.Add(1)
	if err != nil {
		m.syncErrorsTotal.Add(1)
	}
}

// RecordDerived records newly derived addresses.
func (m *Metrics) RecordDerived(n int) {
	m.addressesDerived.Add(int64(n))
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	NodeCallsTotal   int64            `json:"node_calls_total"`
	NodeErrorsTotal  int64            `json:"node_errors_total"`
	NodeLatencyNanos int64            `json:"node_latency_nanos"`
	CommandCalls     map[string]int64 `json:"command_calls"`
	SyncRunsTotal    int64            `json:"sync_runs_total"`
	SyncErrorsTotal  int64            `json:"sync_errors_total"`
	AddressesDerived int64            `json:"addresses_derived"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		NodeCallsTotal:   m.nodeCallsTotal.Load(),
		NodeErrorsTotal:  m.nodeErrorsTotal.Load(),
		NodeLatencyNanos: m.nodeLatencyNanos.Load(),
		CommandCalls: map[string]int64{
			CommandSpentStatus:  m.spentStatusCalls.Load(),
			CommandBalances:     m.balanceCalls.Load(),
			CommandFindTxs:      m.findTxCalls.Load(),
			CommandNodeInfo:     m.nodeInfoCalls.Load(),
			CommandBroadcastTxs: m.broadcastCalls.Load(),
		},
		SyncRunsTotal:    m.syncRunsTotal.Load(),
		SyncErrorsTotal:  m.syncErrorsTotal.Load(),
		AddressesDerived: m.addressesDerived.Load(),
	}
}

// NodeCallsTotal returns the total number of node calls made.
func (m *Metrics) NodeCallsTotal() int64 {
	return m.nodeCallsTotal.Load()
}

// NodeErrorsTotal returns the total number of failed node calls.
func (m *Metrics) NodeErrorsTotal() int64 {
	return m.nodeErrorsTotal.Load()
}

// NodeLatencyAvgMs returns the average node latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) NodeLatencyAvgMs() float64 {
	calls := m.nodeCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	nanos := m.nodeLatencyNanos.Load()
	return float64(nanos) / float64(calls) / 1e6
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.nodeCallsTotal.Store(0)
	m.nodeErrorsTotal.Store(0)
	m.nodeLatencyNanos.Store(0)
	m.spentStatusCalls.Store(0)
	m.balanceCalls.Store(0)
	m.findTxCalls.Store(0)
	m.nodeInfoCalls.Store(0)
	m.broadcastCalls.Store(0)
	m.syncRunsTotal.Store(0)
	m.syncErrorsTotal.Store(0)
	m.addressesDerived.Store(0)
}
