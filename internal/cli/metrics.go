package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/addrsync/internal/metrics"
	"github.com/mrz1836/addrsync/internal/output"
)

// metricsCmd prints the process metrics.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show node and sync counters",
	Long: `Gather the node call, sync and derivation counters of this process
through the Prometheus registry and print them.

Example:
  addrsync metrics -o json`,
	RunE: runMetrics,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(metricsCmd)
}

// sample is one gathered metric value.
type sample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	samples, err := gatherSamples(cc.Metrics)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cc.Fmt.IsJSON() {
		return cc.Fmt.JSON(samples)
	}

	table := output.NewTable("METRIC", "LABELS", "VALUE").AlignRight(2)
	for _, s := range samples {
		table.AddRow(s.Name, formatLabels(s.Labels), strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
	return table.Render(w)
}

// gatherSamples flattens the registry for m into samples sorted by name.
func gatherSamples(m *metrics.Metrics) ([]sample, error) {
	reg, err := metrics.Registry(m)
	if err != nil {
		return nil, err
	}
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	samples := []sample{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			s := sample{Name: family.GetName()}
			for _, label := range metric.GetLabel() {
				if s.Labels == nil {
					s.Labels = map[string]string{}
				}
				s.Labels[label.GetName()] = label.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				s.Value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				s.Value = metric.GetGauge().GetValue()
			case metric.GetUntyped() != nil:
				s.Value = metric.GetUntyped().GetValue()
			}
			samples = append(samples, s)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
