package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunDuration tracks the latency of full ingestion runs
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "shiftwatch_run_duration_seconds",
			Help: "Duration of ingestion runs in seconds",
			Buckets: []float64{
				0.1,  // 100ms
				0.25, // 250ms
				0.5,  // 500ms
				1.0,  // 1s
				2.5,  // 2.5s
				5.0,  // 5s
				10.0, // 10s
				30.0, // 30s
				60.0, // 1m
			},
		},
		[]string{"status"}, // success or failure
	)

	// CandidatesSeen counts raw candidates yielded by all sources
	CandidatesSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiftwatch_candidates_total",
		Help: "Raw code candidates observed across all sources",
	})

	// CodesInserted counts newly stored codes
	CodesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiftwatch_codes_inserted_total",
		Help: "Codes stored for the first time",
	})

	// SourceFailures counts per-source fetch failures
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftwatch_source_failures_total",
			Help: "Source fetches that failed and were skipped",
		},
		[]string{"source"},
	)

	// Deliveries counts notification delivery outcomes per destination
	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftwatch_deliveries_total",
			Help: "Notification messages by destination and outcome",
		},
		[]string{"destination", "status"}, // delivered or failed
	)
)

// RecordRunDuration records the duration of one ingestion run
func RecordRunDuration(status string, duration float64) {
	RunDuration.WithLabelValues(status).Observe(duration)
}

// RecordDelivery records one terminal delivery outcome
func RecordDelivery(destination, status string) {
	Deliveries.WithLabelValues(destination, status).Inc()
}
