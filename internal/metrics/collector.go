package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "addrsync"

type collector struct {
	m *Metrics

	nodeCalls    *prometheus.Desc
	nodeErrors   *prometheus.Desc
	nodeLatency  *prometheus.Desc
	commandCalls *prometheus.Desc
	syncRuns     *prometheus.Desc
	syncErrors   *prometheus.Desc
	derived      *prometheus.Desc
}

// NewCollector exposes m as a prometheus.Collector.
func NewCollector(m *Metrics) prometheus.Collector {
	return &collector{
		m: m,
		nodeCalls: prometheus.NewDesc(
			namespace+"_node_calls_total",
			"Node commands issued",
			nil, nil,
		),
		nodeErrors: prometheus.NewDesc(
			namespace+"_node_errors_total",
			"Node commands that failed",
			nil, nil,
		),
		nodeLatency: prometheus.NewDesc(
			namespace+"_node_latency_seconds_total",
			"Cumulative node command latency",
			nil, nil,
		),
		commandCalls: prometheus.NewDesc(
			namespace+"_node_command_calls_total",
			"Node commands issued by command name",
			[]string{"command"}, nil,
		),
		syncRuns: prometheus.NewDesc(
			namespace+"_sync_runs_total",
			"Ledger sync runs",
			nil, nil,
		),
		syncErrors: prometheus.NewDesc(
			namespace+"_sync_errors_total",
			"Ledger sync runs that failed",
			nil, nil,
		),
		derived: prometheus.NewDesc(
			namespace+"_addresses_derived_total",
			"Addresses derived from the seed store",
			nil, nil,
		),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodeCalls
	ch <- c.nodeErrors
	ch <- c.nodeLatency
	ch <- c.commandCalls
	ch <- c.syncRuns
	ch <- c.syncErrors
	ch <- c.derived
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.nodeCalls, prometheus.CounterValue, float64(snap.NodeCallsTotal))
	ch <- prometheus.MustNewConstMetric(c.nodeErrors, prometheus.CounterValue, float64(snap.NodeErrorsTotal))
	ch <- prometheus.MustNewConstMetric(c.nodeLatency, prometheus.CounterValue, float64(snap.NodeLatencyNanos)/1e9)
	for command, n := range snap.CommandCalls {
		ch <- prometheus.MustNewConstMetric(c.commandCalls, prometheus.CounterValue, float64(n), command)
	}
	ch <- prometheus.MustNewConstMetric(c.syncRuns, prometheus.CounterValue, float64(snap.SyncRunsTotal))
	ch <- prometheus.MustNewConstMetric(c.syncErrors, prometheus.CounterValue, float64(snap.SyncErrorsTotal))
	ch <- prometheus.MustNewConstMetric(c.derived, prometheus.CounterValue, float64(snap.AddressesDerived))
}

// Registry returns a registry with the collector for m registered.
func Registry(m *Metrics) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(m)); err != nil {
		return nil, err
	}
	return reg, nil
}
