// Package metrics provides Prometheus metrics for the comic feed.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "comicfeed"

var (
	// FeedLoadsTotal counts reader page loads by outcome.
	FeedLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_loads_total",
			Help:      "Total number of reader page loads",
		},
		[]string{"outcome"},
	)

	// NewsRequestsTotal counts /api/news page requests by HTTP status.
	NewsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "news_requests_total",
			Help:      "Total number of news API page requests",
		},
		[]string{"status"},
	)

	// TasksTotal counts finished background tasks.
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of background tasks",
		},
		[]string{"type", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of background tasks in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type"},
	)

	// ArticlesGenerated counts articles turned into comics, per source.
	ArticlesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_generated_total",
			Help:      "Total number of generated comic articles",
		},
		[]string{"source"},
	)

	// UpstreamRequestsTotal counts calls to news and generation APIs.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream API requests",
		},
		[]string{"service", "status"},
	)

	// StageDuration observes comic generation stages: script and panel.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_stage_duration_seconds",
			Help:      "Duration of comic generation stages in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"stage", "status"},
	)

	ArticlesPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_purged_total",
			Help:      "Total number of articles removed by cleanup",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_depth",
			Help:      "Number of tasks waiting in the scheduler queue",
		},
	)
)

func RecordFeedLoad(outcome string) {
	FeedLoadsTotal.WithLabelValues(outcome).Inc()
}

func RecordNewsRequest(status int) {
	NewsRequestsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordTask records a finished task and its duration.
func RecordTask(taskType, status string, duration float64) {
	TasksTotal.WithLabelValues(taskType, status).Inc()
	TaskDuration.WithLabelValues(taskType).Observe(duration)
}

func RecordArticleGenerated(source string) {
	ArticlesGenerated.WithLabelValues(source).Inc()
}

func RecordUpstream(service, status string) {
	UpstreamRequestsTotal.WithLabelValues(service, status).Inc()
}

func RecordStage(stage, status string, duration float64) {
	StageDuration.WithLabelValues(stage, status).Observe(duration)
}

func RecordPurge(count int64) {
	ArticlesPurged.Add(float64(count))
}

func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}
