// Package metrics defines the console's Prometheus metrics. It is the single source
// of truth for metric names, labels and help strings.
//
// Metrics live on their own registry so tests and multiple servers in one process
// never collide on the default registerer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rms_console"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds every collector the console emits. A nil *Metrics is a valid no-op sink.
type Metrics struct {
	registry *prometheus.Registry

	// APIRequestsTotal counts backend calls made by the fetch layer.
	// Labels: method, status_class ("2xx", "4xx", "5xx", "error" for transport failures).
	APIRequestsTotal *prometheus.CounterVec

	// APIRequestDuration measures backend call latency.
	// Label: method.
	APIRequestDuration *prometheus.HistogramVec

	// HTTPRequestsTotal counts requests served by the console itself.
	// Labels: method, status_class.
	HTTPRequestsTotal *prometheus.CounterVec

	// NavFetchesTotal counts menu tree fetches.
	// Label: result ("success", "error").
	NavFetchesTotal *prometheus.CounterVec

	// GuardDecisionsTotal counts access guard outcomes.
	// Label: state ("uninitialized", "unauthenticated", "authenticated").
	GuardDecisionsTotal *prometheus.CounterVec
}

// New registers all collectors, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		APIRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of backend API requests, by method and status class.",
		}, []string{"method", "status_class"}),
		APIRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of backend API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served, by method and status class.",
		}, []string{"method", "status_class"}),
		NavFetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nav_fetches_total",
			Help:      "Total number of navigation tree fetches, by result.",
		}, []string{"result"}),
		GuardDecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Total number of access guard decisions, by session state.",
		}, []string{"state"}),
	}
}

// Registry exposes the underlying registry for custom collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GaugeFunc registers a gauge whose value is read from fn on every scrape.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// ObserveAPI records one backend call. status 0 means the transport failed.
func (m *Metrics) ObserveAPI(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.APIRequestsTotal.WithLabelValues(method, StatusClass(status)).Inc()
	m.APIRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, StatusClass(status)).Inc()
}

// ObserveNavFetch records one menu tree fetch.
func (m *Metrics) ObserveNavFetch(err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.NavFetchesTotal.WithLabelValues(result).Inc()
}

// ObserveGuard records one access guard decision.
func (m *Metrics) ObserveGuard(state string) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(state).Inc()
}

// StatusClass maps an HTTP status to "2xx".."5xx", or "error" when no response was received.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return ResultError
	}
	return strconv.Itoa(status/100) + "xx"
}
