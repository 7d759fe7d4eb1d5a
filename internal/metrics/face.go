package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "facedex"

// Face pipeline Prometheus metrics.
var (
	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Embedding extractions by input source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ImageDownloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_download_duration_seconds",
			Help:      "Remote image download duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Requests sent to the face model backend",
		},
		[]string{"stage", "status"},
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Face model backend request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	ModelStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_stage_duration_seconds",
			Help:      "Pipeline stage duration including concurrency wait",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage", "status"},
	)

	ModelInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_in_flight",
			Help:      "Face model calls currently holding a concurrency slot",
		},
	)

	SearchCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_candidates_total",
			Help:      "Candidates seen by the search engine",
		},
		[]string{"result"}, // "scored" / "skipped"
	)

	SearchMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_matches",
			Help:      "Number of matches returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)
)

var registerOnce sync.Once

// RegisterFaceMetrics registers the pipeline collectors. Must be called from main.
func RegisterFaceMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ExtractionsTotal,
			ImageDownloadDuration,
			ModelRequestsTotal,
			ModelRequestDuration,
			ModelStageDuration,
			ModelInFlight,
			SearchCandidatesTotal,
			SearchMatches,
		)
	})
}
