package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var videoAnalysisCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_video_analyses",
	Help: "Number of whole-video comment analyses, by outcome",
}, []string{"outcome"})

var commentsAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_comments_analyzed",
	Help: "Number of comments analyzed through the workflow endpoints, by action",
}, []string{"action"})
