// Package metrics provides Prometheus metrics for the cost endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics. Construct once per registry.
type Collector struct {
	RequestsTotal *prometheus.CounterVec

	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	CooldownSkips prometheus.Counter

	FetchDuration prometheus.Histogram
	FetchFailures prometheus.Counter
	RateLimitHits prometheus.Counter
}

// New creates a collector with all metrics registered against reg.
// Tests pass a fresh prometheus.NewRegistry to avoid collisions.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "costwatch",
				Name:      "requests_total",
				Help:      "HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "costwatch",
			Name:      "report_cache_hits_total",
			Help:      "Report requests served from the in-memory cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "costwatch",
			Name:      "report_cache_misses_total",
			Help:      "Report requests that missed the cache",
		}),
		CooldownSkips: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "costwatch",
			Name:      "cooldown_skips_total",
			Help:      "Upstream fetches skipped because the rate-limit cooldown was active",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "costwatch",
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Duration of full cost_report range fetches",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "costwatch",
			Name:      "upstream_fetch_failures_total",
			Help:      "Range fetches that ended unavailable",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "costwatch",
			Name:      "upstream_rate_limit_total",
			Help:      "Range fetches aborted by rate limiting after retries",
		}),
	}
}
