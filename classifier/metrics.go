package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var classifierAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "sieve_classifier_api_duration_sec",
	Help: "Duration of text classifier API calls",
})

var classifierAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_classifier_api_count",
	Help: "Number of text classifier API calls, by HTTP status code",
}, []string{"status"})

var classifierCacheCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sieve_classifier_cache",
	Help: "Number of classifier verdict cache lookups, by result (hit, miss, error)",
}, []string{"result"})
