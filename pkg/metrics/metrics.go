// Package metrics defines the Prometheus metric collectors used by the search
// service and exposes an HTTP handler for scraping. Recording helpers accept a
// nil *Metrics so components can run without instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	SuggestRequestsTotal *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	ChangesReceivedTotal *prometheus.CounterVec
	ReindexJobsTotal     *prometheus.CounterVec
	ReindexDuration      *prometheus.HistogramVec
	RecordFailuresTotal  *prometheus.CounterVec
	IndexPublishesTotal  *prometheus.CounterVec
	IndexDocuments       *prometheus.GaugeVec
	IndexTerms           prometheus.Gauge
	IndexGeneration      prometheus.Gauge
	MutationQueueDepth   prometheus.Gauge
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, invalid, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of matching documents per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SuggestRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "suggest_requests_total",
				Help: "Total suggestion requests by result type.",
			},
			[]string{"result_type"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		ChangesReceivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_changes_received_total",
				Help: "Change notifications received by source and operation.",
			},
			[]string{"source", "operation"},
		),
		ReindexJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reindex_jobs_total",
				Help: "Finished reindex jobs by scope and final state.",
			},
			[]string{"scope", "state"},
		),
		ReindexDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reindex_duration_seconds",
				Help:    "Reindex job duration in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"scope"},
		),
		RecordFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reindex_record_failures_total",
				Help: "Records skipped during reindex by collection and reason.",
			},
			[]string{"collection", "reason"},
		),
		IndexPublishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_publishes_total",
				Help: "Snapshot publish attempts by status.",
			},
			[]string{"status"},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Documents in the published snapshot per collection.",
			},
			[]string{"collection"},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Distinct terms in the published snapshot.",
			},
		),
		IndexGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_generation",
				Help: "Generation of the published snapshot.",
			},
		),
		MutationQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mutation_queue_depth",
				Help: "Mutation reindex tasks accepted but not yet published.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SuggestRequestsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ChangesReceivedTotal,
		m.ReindexJobsTotal,
		m.ReindexDuration,
		m.RecordFailuresTotal,
		m.IndexPublishesTotal,
		m.IndexDocuments,
		m.IndexTerms,
		m.IndexGeneration,
		m.MutationQueueDepth,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSearch(resultType, cacheStatus string, d time.Duration, total int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(d.Seconds())
	if resultType == "hit" || resultType == "zero_result" {
		m.SearchResultsCount.Observe(float64(total))
	}
}

func (m *Metrics) ObserveSuggest(resultType string) {
	if m == nil {
		return
	}
	m.SuggestRequestsTotal.WithLabelValues(resultType).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) ObserveChange(source, operation string) {
	if m == nil {
		return
	}
	m.ChangesReceivedTotal.WithLabelValues(source, operation).Inc()
}

func (m *Metrics) ObserveJob(scope, state string, d time.Duration) {
	if m == nil {
		return
	}
	m.ReindexJobsTotal.WithLabelValues(scope, state).Inc()
	m.ReindexDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (m *Metrics) ObserveRecordFailure(collection, reason string) {
	if m == nil {
		return
	}
	m.RecordFailuresTotal.WithLabelValues(collection, reason).Inc()
}

func (m *Metrics) ObservePublish(status string) {
	if m == nil {
		return
	}
	m.IndexPublishesTotal.WithLabelValues(status).Inc()
}

// SetIndex records the shape of a newly published snapshot.
func (m *Metrics) SetIndex(generation uint64, terms int, perCollection map[string]int) {
	if m == nil {
		return
	}
	m.IndexGeneration.Set(float64(generation))
	m.IndexTerms.Set(float64(terms))
	m.IndexDocuments.Reset()
	for name, n := range perCollection {
		m.IndexDocuments.WithLabelValues(name).Set(float64(n))
	}
}

func (m *Metrics) AddQueueDepth(delta int) {
	if m == nil {
		return
	}
	m.MutationQueueDepth.Add(float64(delta))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
