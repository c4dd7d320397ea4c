// Package metrics implements the metrics collector (C9): it snapshots
// index health into a models.IndexStats, classifies overall status, and
// generates tuning recommendations, then mirrors that snapshot onto a
// set of Prometheus gauges for scraping.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kraklabs/codesearchcore/internal/indexstore"
	"github.com/kraklabs/codesearchcore/pkg/models"
)

const (
	segmentCountWarnThreshold     = 20
	segmentCountDegradedThreshold = 25
	indexSizeWarnBytes            = 500 * 1024 * 1024
	indexSizeDegradedBytes        = 1000 * 1024 * 1024
)

// Collector produces IndexStats snapshots and exposes them as
// Prometheus gauges.
type Collector struct {
	store *indexstore.Store

	docsGauge     prometheus.Gauge
	bytesGauge    prometheus.Gauge
	segmentsGauge prometheus.Gauge
	healthGauge   prometheus.Gauge
}

// New constructs a Collector bound to store and registers its gauges
// with reg.
func New(store *indexstore.Store, reg prometheus.Registerer) *Collector {
	c := &Collector{
		store: store,
		docsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codesearch",
			Subsystem: "index",
			Name:      "documents_total",
			Help:      "Number of live documents in the index.",
		}),
		bytesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codesearch",
			Subsystem: "index",
			Name:      "bytes_total",
			Help:      "Total on-disk size of the index directory in bytes.",
		}),
		segmentsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codesearch",
			Subsystem: "index",
			Name:      "segments_total",
			Help:      "Number of segments currently tracked.",
		}),
		healthGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "codesearch",
			Subsystem: "index",
			Name:      "health_status",
			Help:      "Index health: 0=healthy, 1=warning, 2=degraded.",
		}),
	}
	reg.MustRegister(c.docsGauge, c.bytesGauge, c.segmentsGauge, c.healthGauge)
	return c
}

// Collect builds the current IndexStats snapshot and updates the
// registered gauges to match it.
func (c *Collector) Collect() (*models.IndexStats, error) {
	snap := c.store.Snapshot()
	docCount, err := snap.DocCount()
	if err != nil {
		return nil, err
	}

	totalBytes, err := c.store.DirBytes()
	if err != nil {
		return nil, err
	}

	segments, err := c.store.SegmentsSnapshot()
	if err != nil {
		return nil, err
	}

	stats := &models.IndexStats{
		TotalDocuments: docCount,
		TotalBytes:     totalBytes,
		Segments:       segments,
		// bleve's public API exposes no decoded-segment cache to
		// instrument; hit ratio is reported as -1 to distinguish "not
		// applicable to this engine" from "zero hit ratio" (see
		// DESIGN.md, Open Question 1).
		Cache: models.CacheStats{HitRatio: -1},
	}
	stats.Status = classify(stats)
	stats.Recommendations = recommend(stats)

	c.docsGauge.Set(float64(stats.TotalDocuments))
	c.bytesGauge.Set(float64(stats.TotalBytes))
	c.segmentsGauge.Set(float64(len(stats.Segments)))
	c.healthGauge.Set(healthValue(stats.Status))

	return stats, nil
}

func healthValue(h models.HealthStatus) float64 {
	switch h {
	case models.HealthWarning:
		return 1
	case models.HealthDegraded:
		return 2
	default:
		return 0
	}
}

// classify derives the overall health status from segment count and
// total index size, degraded taking precedence over warning. Segment
// boundaries are strict (≤20 healthy, >25 degraded, 21-25 warning);
// size boundaries include their floor (<500MB healthy, ≥1000MB
// degraded, 500-999MB warning).
func classify(stats *models.IndexStats) models.HealthStatus {
	segCount := len(stats.Segments)
	switch {
	case segCount > segmentCountDegradedThreshold || stats.TotalBytes >= indexSizeDegradedBytes:
		return models.HealthDegraded
	case segCount > segmentCountWarnThreshold || stats.TotalBytes >= indexSizeWarnBytes:
		return models.HealthWarning
	default:
		return models.HealthHealthy
	}
}

// recommend generates tuning suggestions, most-impactful first.
func recommend(stats *models.IndexStats) []models.Recommendation {
	var out []models.Recommendation

	if segCount := len(stats.Segments); segCount > segmentCountWarnThreshold {
		out = append(out, models.Recommendation{
			Title:            "Run segment compaction",
			Description:      "The index has accumulated enough segments that search latency and open-file overhead are rising.",
			Impact:           models.SeverityHigh,
			TuningParameter:  "segment_count",
			CurrentValue:     strconv.Itoa(segCount),
			RecommendedValue: strconv.Itoa(segmentCountWarnThreshold),
			Rationale:        "Each additional segment adds a term-dictionary lookup per query; merging restores single-digit segment counts.",
		})
	}

	if stats.TotalBytes > indexSizeWarnBytes {
		out = append(out, models.Recommendation{
			Title:            "Raise the writer memory budget",
			Description:      "The index has grown large enough that the current writer memory budget may force frequent small commits.",
			Impact:           models.SeverityMedium,
			TuningParameter:  "writer_memory_mb",
			CurrentValue:     "",
			RecommendedValue: "",
			Rationale:        "A larger in-memory batch before each commit produces fewer, larger segments for the same ingest volume.",
		})
	}

	return out
}
