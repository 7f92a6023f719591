// Package metrics exposes the Prometheus collectors of eventsite.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventsite_load_duration_seconds",
			Help:    "Duration of a full data load",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	sourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsite_source_failures_total",
			Help: "Data source loads that failed",
		},
		[]string{"source"},
	)

	recordsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventsite_records",
			Help: "Records held by the active site, per kind",
		},
		[]string{"kind"},
	)

	malformedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventsite_malformed_records_total",
			Help: "Event records repaired during ingestion",
		},
	)

	timeSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsite_time_source_total",
			Help: "Reference time resolutions per source",
		},
		[]string{"source"},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventsite_route_transitions_total",
			Help: "Hash changes handled, by route kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	sessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventsite_sessions",
			Help: "Live visitor sessions",
		},
	)

	generation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventsite_site_generation",
			Help: "Generation of the active site",
		},
	)
)

// TrackLoad records one completed load.
func TrackLoad(d time.Duration, gen uint64) {
	loadDuration.Observe(d.Seconds())
	generation.Set(float64(gen))
}

func TrackSourceFailure(source string) {
	sourceFailures.WithLabelValues(source).Inc()
}

// SetRecords publishes the record count of kind for the active site.
func SetRecords(kind string, n int) {
	recordsLoaded.WithLabelValues(kind).Set(float64(n))
}

func TrackMalformed(n int) {
	malformedRecords.Add(float64(n))
}

func TrackTimeSource(source string) {
	timeSource.WithLabelValues(source).Inc()
}

// TrackTransition counts a hash change. outcome is "applied", "unknown" or "stale".
func TrackTransition(kind, outcome string) {
	transitions.WithLabelValues(kind, outcome).Inc()
}

func SessionOpened() { sessions.Inc() }
func SessionClosed() { sessions.Dec() }
