// Package metrics provides Prometheus exporters for the award engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the gamification engine.
var (
	// Counters.
	ActionsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_actions_processed_total",
			Help: "Total number of user actions processed by the award engine",
		},
		[]string{"action", "status"},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_badges_awarded_total",
			Help: "Total number of badges earned (threshold crossings)",
		},
		[]string{"badge", "kind"},
	)

	PointsCreditedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_points_credited_total",
			Help: "Total points credited to user aggregate scores",
		},
	)

	AwardRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_award_retries_total",
			Help: "Total number of award transactions retried after a conflict",
		},
	)

	AwardErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_award_errors_total",
			Help: "Total number of award attempts dropped after an unrecoverable error",
		},
		[]string{"kind"},
	)

	QueueDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_queue_dropped_total",
			Help: "Total number of action submissions dropped because the queue was full",
		},
	)

	// Gauges.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gamification_queue_depth",
			Help: "Current number of actions waiting in the dispatcher queue",
		},
	)

	// Histograms.
	AwardDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamification_award_duration_seconds",
			Help:    "Duration of award transactions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"kind"},
	)
)

// RecordActionProcessed increments the processed-actions counter.
func RecordActionProcessed(action, status string) {
	ActionsProcessedTotal.WithLabelValues(action, status).Inc()
}

// RecordBadgeAwarded increments award counters for one threshold crossing.
func RecordBadgeAwarded(badge, kind string, points int) {
	BadgesAwardedTotal.WithLabelValues(badge, kind).Inc()
	PointsCreditedTotal.Add(float64(points))
}

// RecordAwardRetry increments the conflict-retry counter.
func RecordAwardRetry() {
	AwardRetriesTotal.Inc()
}

// RecordAwardError increments the dropped-award counter for an error kind.
func RecordAwardError(kind string) {
	AwardErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordQueueDropped increments the queue overflow counter.
func RecordQueueDropped() {
	QueueDroppedTotal.Inc()
}

// SetQueueDepth updates the dispatcher queue depth gauge.
func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// ObserveAwardDuration records the duration of one award transaction.
func ObserveAwardDuration(kind string, seconds float64) {
	AwardDurationSeconds.WithLabelValues(kind).Observe(seconds)
}
