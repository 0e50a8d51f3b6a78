package astitsfilt

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsNamespace is the namespace of all exported metrics
const MetricsNamespace = "astitsfilt"

var (
	keptPacketsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "filter", "kept_packets_total"),
		"total number of packets written to the output",
		nil, nil,
	)

	droppedPacketsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "filter", "dropped_packets_total"),
		"total number of packets belonging to a redundant elementary stream",
		nil, nil,
	)

	continuityErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "psi", "continuity_errors_total"),
		"total number of PSI packets lost according to their continuity counter",
		nil, nil,
	)

	tableDecodesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "psi", "decodes_total"),
		"total number of complete PSI tables decoded",
		[]string{"table"}, nil,
	)

	dropPIDsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "filter", "drop_pids"),
		"number of PIDs currently dropped",
		nil, nil,
	)

	pmtPIDDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "filter", "pmt_pid"),
		"PID of the tracked PMT, -1 if unknown",
		nil, nil,
	)

	syncLossesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(MetricsNamespace, "demuxer", "sync_losses_total"),
		"total number of packets that didn't start with a sync byte",
		nil, nil,
	)
)

// Exporter collects metrics. It implements prometheus.Collector.
type Exporter struct {
	dmx *Demuxer
	f   *Filter
}

// NewExporter creates a new exporter, dmx can be nil
func NewExporter(f *Filter, dmx *Demuxer) *Exporter {
	return &Exporter{
		dmx: dmx,
		f:   f,
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- keptPacketsDesc
	ch <- droppedPacketsDesc
	ch <- continuityErrorsDesc
	ch <- tableDecodesDesc
	ch <- dropPIDsDesc
	ch <- pmtPIDDesc
	if e.dmx != nil {
		ch <- syncLossesDesc
	}
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.f.Stats()
	ch <- prometheus.MustNewConstMetric(keptPacketsDesc, prometheus.CounterValue, float64(s.KeptPackets))
	ch <- prometheus.MustNewConstMetric(droppedPacketsDesc, prometheus.CounterValue, float64(s.DroppedPackets))
	ch <- prometheus.MustNewConstMetric(continuityErrorsDesc, prometheus.CounterValue, float64(s.ContinuityErrors))
	ch <- prometheus.MustNewConstMetric(tableDecodesDesc, prometheus.CounterValue, float64(s.PATDecodes), "pat")
	ch <- prometheus.MustNewConstMetric(tableDecodesDesc, prometheus.CounterValue, float64(s.PMTDecodes), "pmt")
	ch <- prometheus.MustNewConstMetric(dropPIDsDesc, prometheus.GaugeValue, float64(s.DropPIDs))
	ch <- prometheus.MustNewConstMetric(pmtPIDDesc, prometheus.GaugeValue, float64(s.PMTPID))
	if e.dmx != nil {
		ch <- prometheus.MustNewConstMetric(syncLossesDesc, prometheus.CounterValue, float64(e.dmx.SyncLosses()))
	}
}
