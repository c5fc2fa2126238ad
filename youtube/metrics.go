package youtube

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var apiRequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_youtube_api_requests",
	Help: "Number of YouTube Data API requests, by endpoint and HTTP status",
}, []string{"endpoint", "status"})

var apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sieve_youtube_api_duration_sec",
	Help:    "Duration of YouTube Data API requests",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
}, []string{"endpoint"})

var videoCacheCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_youtube_video_cache",
	Help: "Video details cache lookups, by result",
}, []string{"result"})
