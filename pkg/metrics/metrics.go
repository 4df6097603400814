package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxLabelLen = 64

// Metrics owns a private registry with the service's collectors.
type Metrics struct {
	registry *prometheus.Registry

	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	deletions       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers all collectors, plus Go runtime and process collectors,
// under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Billing webhook deliveries by provider, event kind and outcome.",
		}, []string{"provider", "kind", "outcome"}),
		webhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_duration_seconds",
			Help:      "Time spent verifying and applying billing webhooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "deletions_total",
			Help:      "Account deletion attempts by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.webhookEvents,
		m.webhookDuration,
		m.deletions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveWebhook records one webhook delivery.
func (m *Metrics) ObserveWebhook(provider, kind, outcome string, elapsed time.Duration) {
	m.webhookEvents.WithLabelValues(label(provider), label(kind), label(outcome)).Inc()
	m.webhookDuration.WithLabelValues(label(provider)).Observe(elapsed.Seconds())
}

// ObserveDeletion records the result of an account deletion attempt.
func (m *Metrics) ObserveDeletion(result string) {
	m.deletions.WithLabelValues(label(result)).Inc()
}

// Middleware counts requests by chi route pattern so path parameters do not
// explode label cardinality. Unmatched routes are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, label(route), strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, label(route)).Observe(time.Since(start).Seconds())
	})
}

func label(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}
