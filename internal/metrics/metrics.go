package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "quotegen"

// Registry holds the job's collectors. A batch job has no scrape endpoint, so
// the registry is pushed to a Pushgateway at the end of a run.
var Registry = prometheus.NewRegistry()

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of job runs, labeled by final status and error kind.",
		},
		[]string{"status", "error_kind"},
	)

	StageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage (seconds).",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	ImageSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_size_bytes",
			Help:      "Size of generated images (bytes).",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 2, 8),
		},
	)

	DatasetRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Number of rows in the most recently loaded dataset.",
		},
	)

	LastSuccessTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		},
	)
)

func init() {
	Registry.MustRegister(
		RunsTotal,
		StageDurationSeconds,
		ImageSizeBytes,
		DatasetRows,
		LastSuccessTimestamp,
	)
}

// ObserveStage records the time elapsed since start under stage.
func ObserveStage(stage string, start time.Time) {
	StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Push sends the registry to the Pushgateway at url under job. Grouping by
// instance keeps Lambda containers from overwriting each other.
func Push(ctx context.Context, url, job, instance string) error {
	p := push.New(url, job).Gatherer(Registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	return p.AddContext(ctx)
}
