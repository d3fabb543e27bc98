package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "reviewpulse"

var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	PipelineRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_records_total",
			Help:      "Total records handled per pipeline stage.",
		},
		[]string{"stage"},
	)
	AnnotationCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "annotation_calls_total",
			Help:      "Total calls to the sentiment service by result.",
		},
		[]string{"result"},
	)
	PipelineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	ReviewFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_fetches_total",
			Help:      "Total hotel review fetches by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		PipelineRunsTotal,
		PipelineRecordsTotal,
		AnnotationCallsTotal,
		PipelineRunDuration,
		ReviewFetchesTotal,
	)
}
