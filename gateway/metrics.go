package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prismassets/core/stats"
)

// PromCollector implements stats.Collector on top of Prometheus counters
// and histograms, exposed by the daemon's /metrics endpoint.
type PromCollector struct {
	entriesVisited   *prometheus.CounterVec
	containerScans   *prometheus.HistogramVec
	scanDuration     prometheus.Histogram
	scanAssetCount   prometheus.Histogram
	entriesExtracted *prometheus.CounterVec
	exportItems      *prometheus.CounterVec
	exportBytes      prometheus.Counter
}

// NewPromCollector builds a PromCollector and registers its metrics against
// reg (pass prometheus.DefaultRegisterer from cmd/prismassetsd).
func NewPromCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		entriesVisited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prismassets_entries_visited_total",
			Help: "Container entries visited during enumeration.",
		}, []string{"container"}),
		containerScans: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "prismassets_container_scan_seconds",
			Help: "Duration of scanning a single container.",
		}, []string{"result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "prismassets_scan_duration_seconds",
			Help: "Duration of a full scan or refresh sweep.",
		}),
		scanAssetCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prismassets_scan_asset_count",
			Help:    "Number of assets produced by a completed scan.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		entriesExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prismassets_entries_extracted_total",
			Help: "Entries extracted, by outcome.",
		}, []string{"result"}),
		exportItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prismassets_export_items_total",
			Help: "Exported items, by success/failure.",
		}, []string{"result"}),
		exportBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prismassets_export_bytes_total",
			Help: "Total bytes written by export operations.",
		}),
	}
	reg.MustRegister(
		c.entriesVisited, c.containerScans, c.scanDuration, c.scanAssetCount,
		c.entriesExtracted, c.exportItems, c.exportBytes,
	)
	return c
}

func (c *PromCollector) AfterEntryVisited(containerPath, entryPath string) {
	c.entriesVisited.WithLabelValues(containerPath).Inc()
}

func (c *PromCollector) AfterContainerScanned(containerPath string, runtime time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.containerScans.WithLabelValues(result).Observe(runtime.Seconds())
}

func (c *PromCollector) AfterScan(runtime time.Duration, assetCount int, err error) {
	c.scanDuration.Observe(runtime.Seconds())
	c.scanAssetCount.Observe(float64(assetCount))
}

func (c *PromCollector) AfterEntryExtracted(entryStats *stats.EntryStats) {
	c.entriesExtracted.WithLabelValues(string(entryStats.Result)).Inc()
}

func (c *PromCollector) AfterExportItem(assetID string, bytes int64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.exportItems.WithLabelValues(result).Inc()
	c.exportBytes.Add(float64(bytes))
}

var _ stats.Collector = (*PromCollector)(nil)
