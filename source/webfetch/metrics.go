package webfetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded in the fetches counter.
const (
	outcomeSuccess     = "success"
	outcomeCacheHit    = "cache_hit"
	outcomeValidation  = "validation_error"
	outcomeRateLimited = "rate_limited"
	outcomeError       = "error"
)

// Metrics holds the Prometheus collectors for fetching.
type Metrics struct {
	fetches      *prometheus.CounterVec
	attempts     prometheus.Histogram
	duration     prometheus.Histogram
	contentBytes prometheus.Counter
	truncated    prometheus.Counter
	cacheEntries prometheus.Gauge
	rateHosts    prometheus.Gauge
	batchURLs    prometheus.Histogram
	batchFailed  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semfetch",
			Name:      "fetches_total",
			Help:      "URL fetches by outcome.",
		}, []string{"outcome"}),
		attempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semfetch",
			Name:      "fetch_attempts",
			Help:      "Network attempts per fetch, including retries.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semfetch",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent on network fetches that reached the server.",
			Buckets:   prometheus.DefBuckets,
		}),
		contentBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "semfetch",
			Name:      "content_bytes_total",
			Help:      "Body bytes read from fetched documents.",
		}),
		truncated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "semfetch",
			Name:      "truncated_total",
			Help:      "Documents truncated at the size ceiling.",
		}),
		cacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "semfetch",
			Name:      "cache_entries",
			Help:      "Entries held in the result cache.",
		}),
		rateHosts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "semfetch",
			Name:      "rate_limited_hosts",
			Help:      "Hosts tracked by the rate limiter.",
		}),
		batchURLs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semfetch",
			Name:      "batch_urls",
			Help:      "URLs per batch request.",
			Buckets:   prometheus.LinearBuckets(1, 5, 6),
		}),
		batchFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "semfetch",
			Name:      "batch_failed_urls_total",
			Help:      "URLs that failed inside batch requests.",
		}),
	}
}
