package filter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var detectionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_filter_detections",
	Help: "Number of detected items, by pipeline stage and category",
}, []string{"stage", "category"})

var secondPassFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sieve_second_pass_failures",
	Help: "Number of second pass classifier calls which failed and were treated as no detections",
})

var decisionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_policy_decisions",
	Help: "Number of policy decisions, by action",
}, []string{"action"})

var riskScoreHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sieve_risk_score",
	Help:    "Distribution of computed risk scores",
	Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
})

var pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "sieve_pipeline_duration_sec",
	Help: "Total duration of a single comment pipeline run",
})
