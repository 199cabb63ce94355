// Package telemetry exposes Prometheus collectors for the snapshot engine.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts page fetches, labeled by strategy and outcome.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companycrawl_pages_fetched_total",
		Help: "Total page fetches, labeled by fetch strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// HeadlessEscalations counts HTTP fetches promoted to browser rendering.
	HeadlessEscalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companycrawl_headless_escalations_total",
		Help: "Total fetches escalated from plain HTTP to headless rendering.",
	})

	// FetchRetries counts retry attempts across all fetchers.
	FetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companycrawl_fetch_retries_total",
		Help: "Total fetch retry attempts.",
	})

	// JobsExtracted counts job postings, labeled by platform and strategy tier.
	JobsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companycrawl_jobs_extracted_total",
		Help: "Total job postings extracted, labeled by ATS platform and strategy.",
	}, []string{"platform", "strategy"})

	// ArticlesExtracted counts articles, labeled by source (feed or page).
	ArticlesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companycrawl_articles_extracted_total",
		Help: "Total articles extracted, labeled by source.",
	}, []string{"source"})

	rateLimitDelaySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "companycrawl_rate_limit_delay_seconds",
		Help:    "Delay introduced by the per-domain rate limiter.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"domain"})
)

// ObserveRateLimitDelay records how long a fetch waited for its domain slot.
func ObserveRateLimitDelay(domain string, d time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(domain).Observe(d.Seconds())
}
