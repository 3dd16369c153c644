// Package metrics exposes Prometheus collectors for the news service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	newsRequestsTotal           *prometheus.CounterVec
	newsUpstreamFetchesTotal    *prometheus.CounterVec
	newsLockAcquireTotal        *prometheus.CounterVec
	newsStoreFallbackTotal      *prometheus.CounterVec
	newsClassifierBatchesTotal  *prometheus.CounterVec
	newsArticlesFilteredTotal   *prometheus.CounterVec
	newsQuotaRemaining          prometheus.Gauge
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec
	newsClassifierPacingSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		newsRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_requests_total",
				Help: "Total number of news requests served, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		newsUpstreamFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_upstream_fetches_total",
				Help: "Total number of upstream news API calls, labeled by endpoint and result.",
			},
			[]string{"endpoint", "result"},
		)

		newsLockAcquireTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_lock_acquire_total",
				Help: "Total number of fetch lock acquisitions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		newsStoreFallbackTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_store_fallback_total",
				Help: "Total number of shared store operations served from process memory.",
			},
			[]string{"op"},
		)

		newsClassifierBatchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_classifier_batches_total",
				Help: "Total number of relevance classifier sub-batches, labeled by result.",
			},
			[]string{"result"},
		)

		newsArticlesFilteredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "news_articles_filtered_total",
				Help: "Total number of articles removed, labeled by filter stage.",
			},
			[]string{"stage"},
		)

		newsQuotaRemaining = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "news_quota_remaining",
				Help: "Upstream fetches remaining for the current UTC day.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route"},
		)

		newsClassifierPacingSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "news_classifier_pacing_seconds",
				Help:    "Histogram of waits imposed between classifier sub-batches.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest counts one news request by outcome (cache_hit, refreshed, fallback).
func ObserveRequest(outcome string) {
	Init()
	newsRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstreamFetch counts one upstream call.
func ObserveUpstreamFetch(endpoint, result string) {
	Init()
	newsUpstreamFetchesTotal.WithLabelValues(endpoint, result).Inc()
}

// ObserveLock counts one lock acquisition attempt.
func ObserveLock(outcome string) {
	Init()
	newsLockAcquireTotal.WithLabelValues(outcome).Inc()
}

// ObserveStoreFallback counts a shared store operation answered from memory.
func ObserveStoreFallback(op string) {
	Init()
	newsStoreFallbackTotal.WithLabelValues(op).Inc()
}

// ObserveClassifierBatch counts one classifier sub-batch.
func ObserveClassifierBatch(result string) {
	Init()
	newsClassifierBatchesTotal.WithLabelValues(result).Inc()
}

// ObserveFiltered adds n removed articles for a filter stage.
func ObserveFiltered(stage string, n int) {
	if n <= 0 {
		return
	}
	Init()
	newsArticlesFilteredTotal.WithLabelValues(stage).Add(float64(n))
}

// SetQuotaRemaining records today's remaining upstream fetches.
func SetQuotaRemaining(n int) {
	Init()
	newsQuotaRemaining.Set(float64(n))
}

// ObserveClassifierPacing records the delay introduced by the classifier limiter.
func ObserveClassifierPacing(d time.Duration) {
	Init()
	newsClassifierPacingSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
