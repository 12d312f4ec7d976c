// Package telemetry exposes Prometheus metrics for document loads, saves, edits and API requests.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifedash/internal/cache"
)

const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

var (
	documentLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifedash",
		Name:      "document_loads_total",
		Help:      "Document loads by collection and outcome.",
	}, []string{"collection", "outcome"})

	documentSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifedash",
		Name:      "document_saves_total",
		Help:      "Document saves by collection and outcome.",
	}, []string{"collection", "outcome"})

	saveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lifedash",
		Name:      "document_save_duration_seconds",
		Help:      "Time spent writing a document to the store.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"collection"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifedash",
		Name:      "mutations_total",
		Help:      "Tracker edits by operation and outcome.",
	}, []string{"operation", "outcome"})

	mirrorSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifedash",
		Name:      "mirror_syncs_total",
		Help:      "Documents mirrored to the remote store by outcome.",
	}, []string{"outcome"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lifedash",
		Name:      "http_requests_total",
		Help:      "API requests by method, route pattern and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lifedash",
		Name:      "http_request_duration_seconds",
		Help:      "API request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

func ObserveLoad(collection, outcome string) {
	documentLoads.WithLabelValues(collection, outcome).Inc()
}

func ObserveSave(collection, outcome string, took time.Duration) {
	documentSaves.WithLabelValues(collection, outcome).Inc()
	saveDuration.WithLabelValues(collection).Observe(took.Seconds())
}

func ObserveMutation(operation, outcome string) {
	mutations.WithLabelValues(operation, outcome).Inc()
}

func ObserveMirrorSync(outcome string) {
	mirrorSyncs.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one finished request. route is the mux pattern, so
// path parameters do not explode label cardinality.
func ObserveHTTP(method, route string, code int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(took.Seconds())
}

var (
	cacheHits      = prometheus.NewDesc("lifedash_document_cache_hits_total", "Document reads served from the cache.", nil, nil)
	cacheMisses    = prometheus.NewDesc("lifedash_document_cache_misses_total", "Document reads that went to the store.", nil, nil)
	cacheEvictions = prometheus.NewDesc("lifedash_document_cache_evictions_total", "Documents evicted to stay within capacity.", nil, nil)
	cacheExpired   = prometheus.NewDesc("lifedash_document_cache_expired_total", "Documents dropped after their ttl.", nil, nil)
	cacheSize      = prometheus.NewDesc("lifedash_document_cache_entries", "Documents currently cached.", nil, nil)
)

// cacheCollector reads the cache counters at scrape time.
type cacheCollector struct {
	stats func() cache.Stats
}

func (c cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHits
	ch <- cacheMisses
	ch <- cacheEvictions
	ch <- cacheExpired
	ch <- cacheSize
}

func (c cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(cacheHits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(cacheMisses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(cacheEvictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(cacheExpired, prometheus.CounterValue, float64(s.Expired))
	ch <- prometheus.MustNewConstMetric(cacheSize, prometheus.GaugeValue, float64(s.Size))
}

// WatchCache exports the document cache counters on reg. Only the first
// cache registered on a registry is exported.
func WatchCache(reg prometheus.Registerer, stats func() cache.Stats) error {
	err := reg.Register(cacheCollector{stats: stats})
	var dup prometheus.AlreadyRegisteredError
	if errors.As(err, &dup) {
		return nil
	}
	return err
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
