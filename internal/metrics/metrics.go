package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by the viewport scheduler.
const (
	FetchApplied        = "applied"
	FetchStale          = "stale"
	FetchError          = "error"
	FetchPaused         = "paused"
	FetchBelowThreshold = "below_threshold"
)

// Entity detail outcomes.
const (
	DetailOK     = "ok"
	DetailNoData = "no_data"
	DetailError  = "error"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	fetchesTotal        *prometheus.CounterVec
	fetchDuration       prometheus.Histogram
	markers             prometheus.Gauge
	itemsDropped        prometheus.Counter
	detailsTotal        *prometheus.CounterVec
	labelChunkFailures  prometheus.Counter
}

// New creates a fresh Metrics registry with HTTP, fetch and detail metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wikicoord",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by wikicoord",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wikicoord",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by wikicoord",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	fetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wikicoord",
		Name:      "fetches_total",
		Help:      "Viewport fetch attempts by outcome",
	}, []string{"outcome"})

	fetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wikicoord",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of viewport fetches from request to decode",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	markers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wikicoord",
		Name:      "markers",
		Help:      "Number of markers held by the session",
	})

	itemsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wikicoord",
		Name:      "items_dropped_total",
		Help:      "Result rows skipped because of a malformed coordinate literal",
	})

	detailsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wikicoord",
		Name:      "entity_details_total",
		Help:      "Entity detail resolutions by outcome",
	}, []string{"outcome"})

	labelChunkFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "wikicoord",
		Name:      "label_chunk_failures_total",
		Help:      "Label lookup chunks that failed and fell back to raw ids",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		fetchesTotal,
		fetchDuration,
		markers,
		itemsDropped,
		detailsTotal,
		labelChunkFailures,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		fetchesTotal:        fetchesTotal,
		fetchDuration:       fetchDuration,
		markers:             markers,
		itemsDropped:        itemsDropped,
		detailsTotal:        detailsTotal,
		labelChunkFailures:  labelChunkFailures,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncFetch counts a viewport fetch attempt with the given outcome.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchDuration observes a fetch duration.
func (m *Metrics) ObserveFetchDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(duration.Seconds())
}

// SetMarkers records the current marker count.
func (m *Metrics) SetMarkers(n int) {
	if m == nil {
		return
	}
	m.markers.Set(float64(n))
}

// AddItemsDropped counts malformed result rows.
func (m *Metrics) AddItemsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.itemsDropped.Add(float64(n))
}

// IncDetail counts an entity detail resolution with the given outcome.
func (m *Metrics) IncDetail(outcome string) {
	if m == nil {
		return
	}
	m.detailsTotal.WithLabelValues(outcome).Inc()
}

// IncLabelChunkFailure counts a failed label lookup chunk.
func (m *Metrics) IncLabelChunkFailure() {
	if m == nil {
		return
	}
	m.labelChunkFailures.Inc()
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
