package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emsrates_pipeline_runs_total",
		Help: "Completed pipeline runs.",
	})

	runFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emsrates_pipeline_failures_total",
		Help: "Pipeline runs that ended in a stage error.",
	})

	rowsIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emsrates_rows_in_total",
		Help: "Incident rows entering the pipeline.",
	})

	rowsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emsrates_rows_dropped_total",
		Help: "Incident rows dropped by deduplication.",
	})

	agesImputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emsrates_ages_imputed_total",
		Help: "Missing ages filled by the stochastic imputer.",
	})

	joinGaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emsrates_join_gaps_total",
		Help: "Aggregate cells left without a defined rate.",
	})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "emsrates_stage_duration_seconds",
		Help:    "Wall time per pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)
