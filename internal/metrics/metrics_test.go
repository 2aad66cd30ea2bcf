package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

func TestMetrics_RecordNodeCall(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordNodeCall(CommandBalances, 100*time.Millisecond, nil)
	assert.Equal(t, int64(1), m.NodeCallsTotal())
	assert.Equal(t, int64(0), m.NodeErrorsTotal())
	assert.Equal(t, int64(1), m.balanceCalls.Load())

	m.RecordNodeCall(CommandSpentStatus, 50*time.Millisecond, syncerr.ErrRemoteUnavailable)
	assert.Equal(t, int64(2), m.NodeCallsTotal())
	assert.Equal(t, int64(1), m.NodeErrorsTotal())
	assert.Equal(t, int64(1), m.spentStatusCalls.Load())

	m.RecordNodeCall("unknownCommand", time.Millisecond, nil)
	assert.Equal(t, int64(3), m.NodeCallsTotal())
}

func TestMetrics_RecordSync(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordSync(nil)
	m.RecordSync(syncerr.ErrGeneral)
	m.RecordDerived(11)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.SyncRunsTotal)
	assert.Equal(t, int64(1), snap.SyncErrorsTotal)
	assert.Equal(t, int64(11), snap.AddressesDerived)
}

func TestMetrics_NodeLatencyAvg(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	assert.InDelta(t, 0.0, m.NodeLatencyAvgMs(), 0.001)

	m.RecordNodeCall(CommandFindTxs, 100*time.Millisecond, nil)
	m.RecordNodeCall(CommandFindTxs, 200*time.Millisecond, nil)

	assert.InDelta(t, 150.0, m.NodeLatencyAvgMs(), 0.001)
}

func TestMetrics_Reset(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	m.RecordNodeCall(CommandNodeInfo, time.Second, syncerr.ErrGeneral)
	m.RecordSync(nil)
	m.RecordDerived(3)
	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.NodeCallsTotal)
	assert.Zero(t, snap.NodeErrorsTotal)
	assert.Zero(t, snap.SyncRunsTotal)
	assert.Zero(t, snap.AddressesDerived)
	assert.Zero(t, snap.CommandCalls[CommandNodeInfo])
}

func TestMetrics_Concurrent(t *testing.T) {
	t.Parallel()
	m := &Metrics{}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				m.RecordNodeCall(CommandBalances, time.Millisecond, nil)
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, int64(1000), m.NodeCallsTotal())
}

func TestCollector(t *testing.T) {
	t.Parallel()
	m := &Metrics{}
	m.RecordNodeCall(CommandBalances, time.Second, nil)
	m.RecordNodeCall(CommandBalances, time.Second, syncerr.ErrRemoteUnavailable)
	m.RecordSync(nil)
	m.RecordDerived(4)

	reg, err := Registry(m)
	require.NoError(t, err)

	expected := `
# HELP addrsync_node_calls_total Node commands issued
# TYPE addrsync_node_calls_total counter
addrsync_node_calls_total 2
# HELP addrsync_node_errors_total Node commands that failed
# TYPE addrsync_node_errors_total counter
addrsync_node_errors_total 1
# HELP addrsync_addresses_derived_total Addresses derived from the seed store
# TYPE addrsync_addresses_derived_total counter
addrsync_addresses_derived_total 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"addrsync_node_calls_total", "addrsync_node_errors_total", "addrsync_addresses_derived_total"))

	count, err := testutil.GatherAndCount(reg, "addrsync_node_command_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
