// Package metrics exposes Prometheus collectors for the analysis service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	analysesTotal           *prometheus.CounterVec
	analysisDurationSeconds prometheus.Histogram
	fetchAttemptsTotal      *prometheus.CounterVec
	fetchDurationSeconds    prometheus.Histogram
	probeFailuresTotal      *prometheus.CounterVec
	paginationHopsTotal     prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		analysesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlscope_analyses_total",
				Help: "Total completed analysis runs, labeled by recommendation.",
			},
			[]string{"recommendation"},
		)

		analysisDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawlscope_analysis_duration_seconds",
				Help:    "Wall-clock duration of analysis runs.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlscope_fetch_attempts_total",
				Help: "Total fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawlscope_fetch_duration_seconds",
				Help:    "Duration of individual fetch calls, retries included.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		)

		probeFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlscope_probe_failures_total",
				Help: "Render probe failures, labeled by kind.",
			},
			[]string{"kind"},
		)

		paginationHopsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlscope_pagination_hops_total",
				Help: "Total pagination hops followed across all runs.",
			},
		)
	})
}

// ObserveAnalysis records one finished run.
func ObserveAnalysis(recommendation string, elapsed time.Duration) {
	if analysesTotal == nil {
		return
	}
	analysesTotal.WithLabelValues(recommendation).Inc()
	analysisDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveFetch records one terminal fetch result.
func ObserveFetch(outcome string, elapsed time.Duration) {
	if fetchAttemptsTotal == nil {
		return
	}
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
	fetchDurationSeconds.Observe(elapsed.Seconds())
}

// ObserveProbeFailure counts a render probe degradation.
func ObserveProbeFailure(kind string) {
	if probeFailuresTotal == nil {
		return
	}
	probeFailuresTotal.WithLabelValues(kind).Inc()
}

// ObservePaginationHop counts one followed "next" link.
func ObservePaginationHop() {
	if paginationHopsTotal == nil {
		return
	}
	paginationHopsTotal.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
