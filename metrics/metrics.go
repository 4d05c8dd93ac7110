// Package metrics holds the prometheus collectors shared by the pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubfeed_upstream_requests_total",
		Help: "Outbound fetch attempts by strategy and outcome",
	}, []string{"strategy", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clubfeed_cache_lookups_total",
		Help: "Pipeline cache lookups by result (hit, miss, bypass)",
	}, []string{"pipeline", "result"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clubfeed_pipeline_duration_seconds",
		Help:    "Duration of a full pipeline refresh",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"pipeline"})

	PipelineItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clubfeed_pipeline_items",
		Help: "Number of items produced by the last refresh",
	}, []string{"pipeline"})
)

// Outcome labels
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)
