// Package metrics exposes Prometheus counters for syncs, OAuth callbacks and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	SyncRunsTotal            = "health_sync_runs_total"
	SyncImportedEntriesTotal = "health_sync_imported_entries_total"
	SyncRateLimitedTotal     = "health_sync_rate_limited_total"
	SyncBlockedDataTypes     = "health_sync_blocked_data_types_total"
	SyncDurationSeconds      = "health_sync_duration_seconds"
	OAuthCallbacksTotal      = "health_oauth_callbacks_total"
	HTTPRequestTotal         = "http_requests_total"
	HTTPRequestDuration      = "http_request_duration_seconds"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	syncRuns        *prometheus.CounterVec
	importedEntries *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	blockedTypes    *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	oauthCallbacks  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SyncRunsTotal,
			Help: "Count of sync runs by provider and outcome",
		}, []string{"provider", "outcome"}),
		importedEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SyncImportedEntriesTotal,
			Help: "Count of metric entries upserted by syncs",
		}, []string{"provider"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SyncRateLimitedTotal,
			Help: "Count of syncs stopped by a provider rate limit",
		}, []string{"provider"}),
		blockedTypes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: SyncBlockedDataTypes,
			Help: "Count of data types found denied during syncs",
		}, []string{"provider", "data_type"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    SyncDurationSeconds,
			Help:    "Duration of sync runs",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		oauthCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: OAuthCallbacksTotal,
			Help: "Count of OAuth callbacks by provider and result",
		}, []string{"provider", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: HTTPRequestTotal,
			Help: "Count of all HTTP requests",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: HTTPRequestDuration,
			Help: "Duration of all HTTP requests",
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.registry.MustRegister(
		m.syncRuns,
		m.importedEntries,
		m.rateLimited,
		m.blockedTypes,
		m.syncDuration,
		m.oauthCallbacks,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSync records one finished sync run. outcome is "ok", "skipped" or "failed".
func (m *Metrics) ObserveSync(provider, outcome string, imported int, rateLimited bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(provider, outcome).Inc()
	if imported > 0 {
		m.importedEntries.WithLabelValues(provider).Add(float64(imported))
	}
	if rateLimited {
		m.rateLimited.WithLabelValues(provider).Inc()
	}
	if elapsed > 0 {
		m.syncDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

// ObserveBlockedDataType records a data type the provider refused
func (m *Metrics) ObserveBlockedDataType(provider, dataType string) {
	if m == nil {
		return
	}
	m.blockedTypes.WithLabelValues(provider, dataType).Inc()
}

// ObserveOAuthCallback records a handshake result, "connected" or the failure reason
func (m *Metrics) ObserveOAuthCallback(provider, result string) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	m.oauthCallbacks.WithLabelValues(provider, result).Inc()
}

// ObserveHTTPRequest records one served request
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
