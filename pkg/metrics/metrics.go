// Package metrics provides Prometheus metrics for camellia runs and the admin API.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// RecordsTotal tracks terminal record outcomes by command, mode and outcome
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Total number of records processed by outcome",
		},
		[]string{"command", "mode", "outcome"},
	)

	// SkipsTotal tracks validation skips by reason
	SkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "pipeline",
			Name:      "skips_total",
			Help:      "Total number of skipped records by reason",
		},
		[]string{"reason"},
	)

	// MatchesTotal tracks match decisions by reason and confidence
	MatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of candidate matches by rule",
		},
		[]string{"reason", "confidence"},
	)

	// CategoryResolutionsTotal tracks which resolver step assigned a category
	CategoryResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "categories",
			Name:      "resolutions_total",
			Help:      "Total number of category resolutions by method",
		},
		[]string{"method"},
	)

	// ChunkDuration tracks the time to decide and write one chunk
	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "camellia",
			Subsystem: "pipeline",
			Name:      "chunk_duration_seconds",
			Help:      "Duration of chunk processing in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"command", "mode"},
	)

	// CandidatePoolSize tracks how many records a candidate is compared against
	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "camellia",
			Subsystem: "matching",
			Name:      "candidate_pool_size",
			Help:      "Number of existing records fetched per candidate",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// HTTPRequestsTotal tracks admin API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of admin API requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks admin API latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "camellia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of admin API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RunLockContention tracks live runs refused because another run held the lock
	RunLockContention = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "camellia",
			Subsystem: "lock",
			Name:      "contention_total",
			Help:      "Total number of live runs refused by the run lock",
		},
	)
)

// Push sends the default registry to a Pushgateway under the given job. Batch commands
// exit before a scrape could see them.
func Push(ctx context.Context, url, job, runID string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
